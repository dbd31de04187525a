package domain

// SnapshotStorage persists the dashboard snapshot plus small pieces of
// client state between runs. Implementations treat unreadable values as
// absent; a storage failure never surfaces past this interface as anything
// other than a miss.
type SnapshotStorage interface {
	// LoadSnapshot returns the stored snapshot, or nil when none is usable
	LoadSnapshot() *CachedSnapshot

	// SaveSnapshot replaces the stored snapshot wholesale
	SaveSnapshot(snap *CachedSnapshot) error

	// DeleteSnapshot removes the stored snapshot
	DeleteSnapshot()

	// LoadEventCursor returns the last acknowledged event feed position
	LoadEventCursor() string

	// SaveEventCursor records the event feed position to resume from
	SaveEventCursor(cursor string) error

	Close() error
}
