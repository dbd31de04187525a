package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const testServerURL = "http://librarian.local:9090"

func testSnapshot(userID string, savedAt int64) *domain.CachedSnapshot {
	return &domain.CachedSnapshot{
		Data: domain.DashboardData{
			Libraries: []domain.Library{
				{ID: "lib1", Name: "TV", Type: domain.LibraryTypeSeries, ItemCount: 42},
			},
			RecentSeries: map[string][]domain.Series{
				"lib1": {{ID: "s1", LibraryID: "lib1", Title: "Severance"}},
			},
		},
		SavedAt: savedAt,
		UserID:  userID,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewSnapshotStore(dir, testServerURL, nil)
	if !s.Persistent() {
		t.Fatal("Persistent() = false, want true")
	}
	if got := s.LoadSnapshot(); got != nil {
		t.Fatalf("LoadSnapshot() on empty store = %+v, want nil", got)
	}

	want := testSnapshot("u1", time.Now().UnixMilli())
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen to prove the snapshot survives a restart
	s = NewSnapshotStore(dir, testServerURL, nil)
	t.Cleanup(func() { s.Close() })

	got := s.LoadSnapshot()
	if got == nil {
		t.Fatal("LoadSnapshot() after reopen = nil, want snapshot")
	}
	if got.UserID != want.UserID || got.SavedAt != want.SavedAt {
		t.Errorf("snapshot metadata = %s/%d, want %s/%d", got.UserID, got.SavedAt, want.UserID, want.SavedAt)
	}
	if len(got.Data.Libraries) != 1 || got.Data.Libraries[0].Name != "TV" {
		t.Errorf("snapshot libraries = %+v, want one library named TV", got.Data.Libraries)
	}
	if len(got.Data.RecentSeries["lib1"]) != 1 {
		t.Errorf("snapshot recent series = %+v, want one entry for lib1", got.Data.RecentSeries)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), testServerURL, nil)
	t.Cleanup(func() { s.Close() })

	if err := s.SaveSnapshot(testSnapshot("u1", time.Now().UnixMilli())); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	s.DeleteSnapshot()

	if got := s.LoadSnapshot(); got != nil {
		t.Errorf("LoadSnapshot() after delete = %+v, want nil", got)
	}
}

func TestCorruptSnapshotIsMiss(t *testing.T) {
	dir := t.TempDir()

	s := NewSnapshotStore(dir, testServerURL, nil)
	if err := s.SaveSnapshot(testSnapshot("u1", time.Now().UnixMilli())); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Corrupt the stored value directly
	dbPath := filepath.Join(dir, hashServerURL(testServerURL), dbFileName)
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("bolt.Open() error = %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put([]byte(snapshotKey), []byte(`{"data":`))
	})
	if err != nil {
		t.Fatalf("corrupting value: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing raw db: %v", err)
	}

	s = NewSnapshotStore(dir, testServerURL, nil)
	t.Cleanup(func() { s.Close() })

	if got := s.LoadSnapshot(); got != nil {
		t.Errorf("LoadSnapshot() with corrupt value = %+v, want nil", got)
	}

	// The slot must be writable again after the corrupt value was dropped
	if err := s.SaveSnapshot(testSnapshot("u1", time.Now().UnixMilli())); err != nil {
		t.Fatalf("SaveSnapshot() after corruption error = %v", err)
	}
	if got := s.LoadSnapshot(); got == nil {
		t.Error("LoadSnapshot() after rewrite = nil, want snapshot")
	}
}

func TestMemoryOnlyMode(t *testing.T) {
	s := NewSnapshotStore("", "", nil)
	t.Cleanup(func() { s.Close() })

	if s.Persistent() {
		t.Fatal("Persistent() = true, want false for memory-only store")
	}

	want := testSnapshot("u1", time.Now().UnixMilli())
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	got := s.LoadSnapshot()
	if got == nil || got.UserID != "u1" {
		t.Errorf("LoadSnapshot() = %+v, want in-memory snapshot for u1", got)
	}
}

func TestLockedDatabaseFallsBackToMemory(t *testing.T) {
	dir := t.TempDir()

	first := NewSnapshotStore(dir, testServerURL, nil)
	t.Cleanup(func() { first.Close() })
	if !first.Persistent() {
		t.Fatal("first store should be persistent")
	}

	// Second store cannot take the exclusive file lock
	second := NewSnapshotStore(dir, testServerURL, nil)
	t.Cleanup(func() { second.Close() })
	if second.Persistent() {
		t.Error("second store on a locked db should run memory-only")
	}

	if err := second.SaveSnapshot(testSnapshot("u1", time.Now().UnixMilli())); err != nil {
		t.Errorf("SaveSnapshot() on memory-only fallback error = %v", err)
	}
}

func TestEventCursorRoundTrip(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), testServerURL, nil)
	t.Cleanup(func() { s.Close() })

	if got := s.LoadEventCursor(); got != "" {
		t.Fatalf("LoadEventCursor() on empty store = %q, want empty", got)
	}
	if err := s.SaveEventCursor("evt-1042"); err != nil {
		t.Fatalf("SaveEventCursor() error = %v", err)
	}
	if got := s.LoadEventCursor(); got != "evt-1042" {
		t.Errorf("LoadEventCursor() = %q, want %q", got, "evt-1042")
	}
}

func TestHashServerURL(t *testing.T) {
	t.Parallel()

	base := hashServerURL("http://librarian.local:9090")
	if len(base) != 12 {
		t.Fatalf("hashServerURL() length = %d, want 12", len(base))
	}

	tests := []struct {
		name  string
		input string
		same  bool
	}{
		{name: "case insensitive", input: "HTTP://LIBRARIAN.LOCAL:9090", same: true},
		{name: "trailing slash", input: "http://librarian.local:9090/", same: true},
		{name: "different host", input: "http://other.local:9090", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hashServerURL(tt.input)
			if (got == base) != tt.same {
				t.Errorf("hashServerURL(%q) = %q, base = %q, want same=%v", tt.input, got, base, tt.same)
			}
		})
	}
}
