package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	level, err := NewLevelDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	t.Cleanup(func() { _ = level.Close() })
	return map[string]Database{
		"mem":     NewMemDB(),
		"leveldb": level,
	}
}

func TestDatabaseGetMissing(t *testing.T) {
	for name, db := range backends(t) {
		if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
		ok, err := db.Has([]byte("missing"))
		if err != nil || ok {
			t.Fatalf("%s: expected missing key, got ok=%v err=%v", name, ok, err)
		}
	}
}

func TestBatchAppliesTogether(t *testing.T) {
	for name, db := range backends(t) {
		if err := db.Put([]byte("p/stale"), []byte("x")); err != nil {
			t.Fatalf("%s: put: %v", name, err)
		}
		batch := db.NewBatch()
		batch.Put([]byte("p/a"), []byte("1"))
		batch.Put([]byte("p/b"), []byte("2"))
		batch.Delete([]byte("p/stale"))
		if batch.Len() != 3 {
			t.Fatalf("%s: expected 3 ops, got %d", name, batch.Len())
		}
		if ok, _ := db.Has([]byte("p/a")); ok {
			t.Fatalf("%s: batch visible before write", name)
		}
		if err := batch.Write(); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		for key, want := range map[string]string{"p/a": "1", "p/b": "2"} {
			got, err := db.Get([]byte(key))
			if err != nil || string(got) != want {
				t.Fatalf("%s: %s = %q (%v), want %q", name, key, got, err, want)
			}
		}
		if ok, _ := db.Has([]byte("p/stale")); ok {
			t.Fatalf("%s: deleted key still present", name)
		}
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("abc")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'z'
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}
