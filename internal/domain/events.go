package domain

// EventType identifies a change-notification category
type EventType string

const (
	// EventLibraryChanged fires when library content is added, removed, or rescanned
	EventLibraryChanged EventType = "library.changed"

	// EventDownloadCompleted fires when a queue item finishes importing
	EventDownloadCompleted EventType = "download.completed"
)

// Event represents a single change notification from the server feed
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	LibraryID  string    `json:"libraryId,omitempty"`
	DownloadID string    `json:"downloadId,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt int64     `json:"occurredAt"` // Unix milliseconds
}
