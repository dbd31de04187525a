package domain

import (
	"context"
)

// LibraryRepository provides access to libraries and the series they contain
type LibraryRepository interface {
	// Libraries returns all configured libraries
	Libraries(ctx context.Context) ([]Library, error)

	// RecentSeries returns the most recently added series in a library
	RecentSeries(ctx context.Context, libraryID string, limit int) ([]Series, error)
}

// ScheduleRepository provides access to upcoming release schedules
type ScheduleRepository interface {
	// Upcoming returns the global schedule for the next number of days
	Upcoming(ctx context.Context, days int) ([]ScheduleEntry, error)

	// Calendar returns the schedule scoped to the given libraries
	Calendar(ctx context.Context, libraryIDs []string, days int) ([]ScheduleEntry, error)
}

// QueueRepository provides access to the server's download queue
type QueueRepository interface {
	// Queue returns the active download queue
	Queue(ctx context.Context) ([]Download, error)
}

// SearchRepository provides server-side search across all libraries
type SearchRepository interface {
	// Search performs a search across all libraries
	Search(ctx context.Context, query string) ([]SearchHit, error)
}
