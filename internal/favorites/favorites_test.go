package favorites

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lankai7/Music/internal/track"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "favorites.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestAddListOrder(t *testing.T) {
	store, _ := setupTestStore(t)

	for _, id := range []string{"3", "1", "2"} {
		if err := store.Add(track.Ref{ID: id, Title: "t" + id}); err != nil {
			t.Fatalf("Add(%s) failed: %v", id, err)
		}
	}
	// re-adding keeps the original slot
	if err := store.Add(track.Ref{ID: "3", Title: "renamed"}); err != nil {
		t.Fatalf("Re-add failed: %v", err)
	}

	refs, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"3", "1", "2"}
	if len(refs) != len(want) {
		t.Fatalf("Expected %d favorites, got %d", len(want), len(refs))
	}
	for i, id := range want {
		if refs[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, refs[i].ID)
		}
	}
	if refs[0].Title != "renamed" {
		t.Errorf("Expected metadata to update, got %q", refs[0].Title)
	}
}

func TestRemoveAndContains(t *testing.T) {
	store, _ := setupTestStore(t)
	_ = store.Add(track.Ref{ID: "a"})

	ok, err := store.Contains("a")
	if err != nil || !ok {
		t.Fatalf("Expected a to be a favorite, got %v (%v)", ok, err)
	}
	if err := store.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := store.Contains("a"); ok {
		t.Error("Expected a to be removed")
	}
	if err := store.Remove("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestToggle(t *testing.T) {
	store, _ := setupTestStore(t)
	ref := track.Ref{ID: "x", Title: "x"}

	on, err := store.Toggle(ref)
	if err != nil || !on {
		t.Fatalf("Expected toggle on, got %v (%v)", on, err)
	}
	on, err = store.Toggle(ref)
	if err != nil || on {
		t.Fatalf("Expected toggle off, got %v (%v)", on, err)
	}
}

func TestAddRequiresID(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.Add(track.Ref{Title: "no id"}); err == nil {
		t.Error("Expected error for ref without id")
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	store, path := setupTestStore(t)
	_ = store.Add(track.Ref{ID: "keep", Title: "kept"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	refs, err := reopened.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(refs) != 1 || refs[0].Title != "kept" {
		t.Errorf("Expected persisted favorite, got %+v", refs)
	}
}
