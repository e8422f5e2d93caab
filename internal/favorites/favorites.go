package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lankai7/Music/internal/track"
)

const bucketName = "favorites"

var ErrNotFound = errors.New("favorite not found")

type record struct {
	Track   track.Ref `json:"track"`
	Seq     uint64    `json:"seq"`
	AddedAt int64     `json:"added_at"`
}

// Store persists favorite tracks in a bolt database keyed by track id.
type Store struct {
	db   *bolt.DB
	path string
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create favorites directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open favorites database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create favorites bucket: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Add stores ref. re-adding an existing favorite keeps its original position.
func (s *Store) Add(ref track.Ref) error {
	if !ref.IsValid() {
		return errors.New("cannot favorite a track without id")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		key := []byte(ref.ID)

		rec := record{Track: ref, AddedAt: time.Now().Unix()}
		var old record
		if existing := b.Get(key); existing != nil && json.Unmarshal(existing, &old) == nil {
			rec.Seq, rec.AddedAt = old.Seq, old.AddedAt
		} else {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			rec.Seq = seq
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Store) Remove(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Toggle adds ref when missing and removes it otherwise. it reports whether
// the track is a favorite afterwards.
func (s *Store) Toggle(ref track.Ref) (bool, error) {
	ok, err := s.Contains(ref.ID)
	if err != nil {
		return false, err
	}
	if ok {
		return false, s.Remove(ref.ID)
	}
	return true, s.Add(ref)
}

func (s *Store) Contains(id string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(bucketName)).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

// List returns favorites in the order they were added.
func (s *Store) List() ([]track.Ref, error) {
	var records []record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				// skip entries written by an incompatible version
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	refs := make([]track.Ref, len(records))
	for i, rec := range records {
		refs[i] = rec.Track
	}
	return refs, nil
}
