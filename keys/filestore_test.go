package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m := NewManager(store)
	rec, err := m.CreateKeyPair("blog-key", map[string]string{"env": "test"})
	if err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	loaded, err := store.Load("blog-key")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.PublicKey != rec.PublicKey || loaded.PrivateKey != rec.PrivateKey {
		t.Fatal("record did not round-trip through disk")
	}
	if loaded.Metadata["env"] != "test" {
		t.Fatalf("metadata lost: %+v", loaded.Metadata)
	}
}

func TestFileStore_RecordFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m := NewManager(store)
	if _, err := m.CreateKeyPair("secret", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "secret.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("key material written with %o, want 600", perm)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Load("absent"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_RejectsPathTraversalIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, bad := range []string{"", "../escape", "a/b", "a b"} {
		if err := store.Save(&KeyRecord{KeyID: bad}); err == nil {
			t.Errorf("keyID %q accepted", bad)
		}
	}
}

func TestFileStore_ListSorted(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m := NewManager(store)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if _, err := m.CreateKeyPair(id, nil); err != nil {
			t.Fatalf("CreateKeyPair(%s): %v", id, err)
		}
	}
	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("got %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestFileStore_RotationPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m := NewManager(store)
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if _, err := m.RotateKey("site", nil); err != nil {
		t.Fatalf("RotateKey: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	m2 := NewManager(reopened)
	family, err := m2.ListKeyFamily("site")
	if err != nil {
		t.Fatalf("ListKeyFamily: %v", err)
	}
	if len(family) != 2 {
		t.Fatalf("expected 2 members after reopen, got %d", len(family))
	}
	if family[0].Status != StatusDeprecated || family[1].Status != StatusActive {
		t.Fatalf("statuses lost across reopen: %s/%s", family[0].Status, family[1].Status)
	}
}
