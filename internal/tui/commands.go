package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/getlibrarian/librarian/internal/config"
	"github.com/getlibrarian/librarian/internal/dashboard"
	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/search"
)

// Command factories for async operations

// LoadDashboardCmd loads the dashboard through the cache. On a cache hit
// this returns immediately; on a miss it blocks on the first fetch.
func LoadDashboardCmd(cache *dashboard.Cache, userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		return DashboardMsg{Result: cache.Load(ctx, userID)}
	}
}

// RefetchCmd triggers a dashboard refresh. The cache's in-flight guard
// makes repeated invocations safe.
func RefetchCmd(cache *dashboard.Cache) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		cache.Refetch(ctx)
		return CacheUpdatedMsg{}
	}
}

// LoadQueueCmd loads the download queue
func LoadQueueCmd(repo domain.QueueRepository) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		queue, err := repo.Queue(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading queue"}
		}
		return QueueMsg{Queue: queue}
	}
}

// SearchCmd runs a search query
func SearchCmd(svc *search.Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		results, err := svc.Search(ctx, query)
		if err != nil {
			return ErrMsg{Err: err, Context: "searching"}
		}
		return SearchResultsMsg{Results: results, Query: query}
	}
}

// LogoutCmd clears credentials and all cached data
func LogoutCmd(cache *dashboard.Cache) tea.Cmd {
	return func() tea.Msg {
		cache.Clear()
		if err := config.ClearCache(); err != nil {
			return ErrMsg{Err: err, Context: "clearing cache"}
		}
		if err := config.ClearCredentials(); err != nil {
			return ErrMsg{Err: err, Context: "clearing credentials"}
		}
		return LogoutDoneMsg{}
	}
}

// WaitForCacheUpdateCmd blocks on the cache's change channel. Re-armed
// after each CacheUpdatedMsg so updates keep flowing.
func WaitForCacheUpdateCmd(cache *dashboard.Cache) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-cache.Updates(); !ok {
			return nil
		}
		return CacheUpdatedMsg{}
	}
}

// WaitForEventCmd blocks on the event pump channel. Re-armed after each
// EventMsg; a closed channel means the stream stopped.
func WaitForEventCmd(events <-chan domain.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamStoppedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// TickCmd drives the spinner animation
func TickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd clears the status message after a delay
func ClearStatusCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
