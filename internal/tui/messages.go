package tui

import (
	"github.com/getlibrarian/librarian/internal/dashboard"
	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/search"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// DashboardMsg carries the result of the initial dashboard load
type DashboardMsg struct {
	Result dashboard.Result
}

// CacheUpdatedMsg signals that the dashboard cache state changed and the
// view should re-read it
type CacheUpdatedMsg struct{}

// EventMsg carries a change notification from the event stream
type EventMsg struct {
	Event domain.Event
}

// StreamStoppedMsg signals that the event stream pump has exited
type StreamStoppedMsg struct{}

// QueueMsg carries a loaded download queue
type QueueMsg struct {
	Queue []domain.Download
}

// SearchResultsMsg signals that search results are ready
type SearchResultsMsg struct {
	Results []search.Result
	Query   string
}

// LogoutDoneMsg signals that credentials and caches were cleared
type LogoutDoneMsg struct{}

// StatusMsg sets a transient status bar message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// TickMsg drives the spinner and relative-time refreshes
type TickMsg struct{}
