package rescache

import (
	"path/filepath"
	"testing"
)

func TestStoreThenLookup(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	data := []byte("klems export payload")
	id := LogicalID("klems", Fingerprint(data))

	if _, ok := c.Lookup(id); ok {
		t.Fatal("unexpected cache hit before Store")
	}

	e1, err := c.Store(id, data)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if e1.LogicalID != id {
		t.Errorf("LogicalID = %q, want %q", e1.LogicalID, id)
	}
	if filepath.Dir(e1.Path) != dir {
		t.Errorf("Path = %q, not under %q", e1.Path, dir)
	}

	e2, ok := c.Lookup(id)
	if !ok || e2.Path != e1.Path {
		t.Fatalf("Lookup after Store = %+v, %v", e2, ok)
	}

	// Storing again under the same logical ID is idempotent.
	e3, err := c.Store(id, []byte("different bytes, same id"))
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if e3.Path != e1.Path {
		t.Errorf("second Store returned a different path: %q vs %q", e3.Path, e1.Path)
	}
}

func TestDifferentContentDifferentID(t *testing.T) {
	a := LogicalID("light_hierarchy", Fingerprint([]byte("scene A")))
	b := LogicalID("light_hierarchy", Fingerprint([]byte("scene B")))
	if a == b {
		t.Fatal("expected distinct fingerprints for distinct content")
	}
}
