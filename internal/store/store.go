package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSnapshot = []byte("snapshot")
	bucketState    = []byte("state")
)

const (
	dbFileName = "librarian.db"

	// Single slot for the dashboard snapshot; ownership lives in the payload
	snapshotKey = "dashboard"

	eventCursorKey = "events:cursor"
)

// SnapshotStore persists the dashboard snapshot and small pieces of client
// state using BoltDB. When the database cannot be opened (no cache dir, or
// another process holds the file lock) the store degrades to memory-only
// mode instead of failing.
type SnapshotStore struct {
	db     *bolt.DB
	logger *slog.Logger

	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads; the sole backend in memory-only mode
	cache map[string][]byte
}

// NewSnapshotStore opens the snapshot database under baseCacheDir, scoped
// to the server by a short URL hash. An empty baseCacheDir selects
// memory-only mode.
func NewSnapshotStore(baseCacheDir, serverURL string, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SnapshotStore{
		logger: logger,
		cache:  make(map[string][]byte),
	}

	if baseCacheDir == "" {
		return s
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("cache dir unavailable, running memory-only", "dir", dir, "error", err)
		return s
	}

	dbPath := filepath.Join(dir, dbFileName)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		// Another librarian process likely holds the exclusive lock
		logger.Warn("cache db unavailable, running memory-only", "path", dbPath, "error", err)
		return s
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSnapshot, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		logger.Warn("cache db unusable, running memory-only", "path", dbPath, "error", err)
		return s
	}

	s.db = db
	return s
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Persistent reports whether writes survive process restarts
func (s *SnapshotStore) Persistent() bool {
	return s.db != nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

// get decodes the value at key into dest. A stored value that fails to
// decode is dropped and reported as a miss.
func (s *SnapshotStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		if err := json.Unmarshal(data, dest); err != nil {
			s.logger.Warn("dropping corrupt cache value", "bucket", string(bucket), "key", key, "error", err)
			s.delete(bucket, key)
			return false
		}
		return true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("dropping corrupt cache value", "bucket", string(bucket), "key", key, "error", err)
		s.delete(bucket, key)
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return true
}

func (s *SnapshotStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	// Update memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	// Write to BoltDB
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *SnapshotStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	// Clear from memory cache
	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Dashboard snapshot ===

// LoadSnapshot returns the persisted dashboard snapshot, or nil when no
// usable snapshot exists
func (s *SnapshotStore) LoadSnapshot() *domain.CachedSnapshot {
	var snap domain.CachedSnapshot
	if !s.get(bucketSnapshot, snapshotKey, &snap) {
		return nil
	}
	return &snap
}

// SaveSnapshot replaces the persisted dashboard snapshot wholesale
func (s *SnapshotStore) SaveSnapshot(snap *domain.CachedSnapshot) error {
	return s.set(bucketSnapshot, snapshotKey, snap)
}

// DeleteSnapshot removes the persisted dashboard snapshot
func (s *SnapshotStore) DeleteSnapshot() {
	s.delete(bucketSnapshot, snapshotKey)
}

// === Client state ===

// LoadEventCursor returns the last acknowledged event feed position
func (s *SnapshotStore) LoadEventCursor() string {
	var cursor string
	if !s.get(bucketState, eventCursorKey, &cursor) {
		return ""
	}
	return cursor
}

// SaveEventCursor records the event feed position to resume from
func (s *SnapshotStore) SaveEventCursor(cursor string) error {
	return s.set(bucketState, eventCursorKey, cursor)
}
