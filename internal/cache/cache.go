package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	cacheVersion = 2
	DefaultTTL   = 30 * 24 * time.Hour
	fileSuffix   = ".bin"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// Entry is what we remember about a resolved track between runs. playable
// urls expire upstream, so they are never cached.
type Entry struct {
	Version      uint8
	TrackID      string
	Title        string
	Artist       string
	Album        string
	CoverURL     string
	LyricText    string
	SyncOffsetMs int64
	CreatedAt    int64
	ExpiresAt    int64
}

type Stats struct {
	Count     int
	SizeBytes int64
}

// Store is a lyric entry cache keyed by catalog track id.
type Store interface {
	Get(id string) (*Entry, error)
	Set(id string, entry *Entry) error
	Delete(id string) error
	Clear() error
	Prune() (int, error)
	Stats() (Stats, error)
	ListAll() ([]*Entry, error)
}

// DiskCache keeps one gob file per track with an in-memory front.
type DiskCache struct {
	basePath string
	ttl      time.Duration
	mu       sync.RWMutex
	memCache map[string]*Entry
}

// NewDiskCache opens a cache rooted at dir. an empty dir gives a memory-only cache.
func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &DiskCache{
		basePath: dir,
		ttl:      ttl,
		memCache: make(map[string]*Entry),
	}, nil
}

func generateKey(id string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) Path() string {
	return c.basePath
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+fileSuffix)
}

func (c *DiskCache) Get(id string) (*Entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(id)

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > time.Now().Unix() {
			return entry, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt <= time.Now().Unix() {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *DiskCache) Set(id string, entry *Entry) error {
	if strings.TrimSpace(id) == "" || entry == nil {
		return ErrInvalidKey
	}

	key := generateKey(id)

	now := time.Now()
	entry.Version = cacheVersion
	entry.TrackID = id
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now.Unix()
	}
	entry.ExpiresAt = now.Add(c.ttl).Unix()

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return writeToDisk(c.getFilePath(key), entry)
}

func readFromDisk(filePath string) (*Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry Entry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, ErrCacheCorrupt
	}

	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func writeToDisk(filePath string, entry *Entry) error {
	// temp file plus rename so readers never see a half-written entry
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(entry); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*Entry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fileSuffix) {
			_ = os.Remove(filepath.Join(c.basePath, entry.Name()))
		}
	}
	return nil
}

// Prune removes expired and unreadable files and returns how many went.
func (c *DiskCache) Prune() (int, error) {
	now := time.Now().Unix()

	c.mu.Lock()
	for key, entry := range c.memCache {
		if entry.ExpiresAt <= now {
			delete(c.memCache, key)
		}
	}
	c.mu.Unlock()

	if c.basePath == "" {
		return 0, nil
	}

	files, err := c.cacheFiles()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, filePath := range files {
		entry, err := readFromDisk(filePath)
		if err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(filePath)
			pruned++
		}
	}
	return pruned, nil
}

func (c *DiskCache) Stats() (Stats, error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return Stats{Count: len(c.memCache)}, nil
	}

	files, err := c.cacheFiles()
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, filePath := range files {
		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}
		stats.Count++
		stats.SizeBytes += info.Size()
	}
	return stats, nil
}

func (c *DiskCache) ListAll() ([]*Entry, error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		result := make([]*Entry, 0, len(c.memCache))
		for _, entry := range c.memCache {
			result = append(result, entry)
		}
		return result, nil
	}

	files, err := c.cacheFiles()
	if err != nil {
		return nil, err
	}

	var result []*Entry
	for _, filePath := range files {
		entry, err := readFromDisk(filePath)
		if err != nil {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (c *DiskCache) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidKey
	}

	key := generateKey(id)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *DiskCache) cacheFiles() ([]string, error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(c.basePath, entry.Name()))
	}
	return files, nil
}

// SetSyncOffset stores a per-track lyric offset, creating an entry if needed.
func SetSyncOffset(store Store, id string, offsetMs int64) error {
	entry, err := store.Get(id)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheExpired) && !errors.Is(err, ErrCacheCorrupt) {
			return err
		}
		entry = &Entry{}
	}
	updated := *entry
	updated.SyncOffsetMs = offsetMs
	return store.Set(id, &updated)
}
