package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/structura-app/adapter/internal/extract"
)

// openTestStore creates a store backed by a temp database file.
func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock pins the store's clock for deterministic timestamps.
func fixedClock(s *Store, at time.Time) {
	s.now = func() time.Time { return at }
}

// testElements returns a small extraction snapshot.
func testElements() []extract.Element {
	return []extract.Element{
		{StableID: "G1", SpeckleID: "obj-1", Name: "Wall A", SimpleType: "Wall", IFCType: "IFCWALL", Source: extract.SourceIFCGlobalID},
		{StableID: "G2", SpeckleID: "obj-2", Name: "Door B", SimpleType: "Door", IFCType: "IFCDOOR", Source: extract.SourceIFCGlobalID},
		{StableID: "G3", SpeckleID: "obj-3", Name: "Beam C", SimpleType: "Beam", Source: extract.SourceApplicationID},
	}
}
