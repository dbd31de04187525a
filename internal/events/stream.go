package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/google/uuid"
)

const (
	// defaultWait is how long the server may hold a poll open before
	// answering with an empty batch
	defaultWait = 25 * time.Second

	// Failed polls back off doubling from backoffBase up to backoffMax
	backoffBase = 2 * time.Second
	backoffMax  = 30 * time.Second
)

// Stream delivers change notifications from the server's long-poll event
// feed. Each Stream identifies itself with a session ID so the server can
// hold a cursor per client.
type Stream struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	sessionID string
	logger    *slog.Logger
}

// NewStream creates an event stream client for the server at baseURL. The
// URL must already be normalized (scheme://host[:port]).
func NewStream(baseURL, apiKey string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		client: &http.Client{
			// Longer than the server's hold time so held polls are not
			// cut off client-side
			Timeout: defaultWait + 10*time.Second,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		sessionID: uuid.NewString(),
		logger:    logger,
	}
}

// pollResponse is the event feed's wire format
type pollResponse struct {
	Events []eventDTO `json:"events"`
	Cursor string     `json:"cursor"`
}

type eventDTO struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	LibraryID  string `json:"libraryId"`
	DownloadID string `json:"downloadId"`
	Title      string `json:"title"`
	OccurredAt int64  `json:"occurredAt"`
}

// Poll asks the server for events after cursor, waiting up to wait for one
// to arrive. An empty cursor starts from the present. The returned cursor
// is always usable for the next call, even when no events arrived.
func (s *Stream) Poll(ctx context.Context, cursor string, wait time.Duration, types []domain.EventType) ([]domain.Event, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("since", cursor)
	}
	q.Set("wait_ms", strconv.FormatInt(wait.Milliseconds(), 10))
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	q.Set("types", strings.Join(names, ","))

	endpoint := s.baseURL + "/api/events?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, cursor, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("X-Client-Id", s.sessionID)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, cursor, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cursor, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, cursor, domain.ErrAuthFailed
	default:
		return nil, cursor, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var pr pollResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, cursor, fmt.Errorf("parse response: %w", err)
	}

	events := make([]domain.Event, 0, len(pr.Events))
	for _, dto := range pr.Events {
		events = append(events, domain.Event{
			ID:         dto.ID,
			Type:       domain.EventType(dto.Type),
			LibraryID:  dto.LibraryID,
			DownloadID: dto.DownloadID,
			Title:      dto.Title,
			OccurredAt: dto.OccurredAt,
		})
	}

	next := pr.Cursor
	if next == "" {
		next = cursor
	}
	return events, next, nil
}

// Run polls the feed until ctx is cancelled, delivering each event to fn in
// arrival order and advancing the cursor past delivered batches. Failed
// polls back off with doubling delays; a successful poll resets the delay.
// Returns the last acknowledged cursor so the caller can persist it.
func (s *Stream) Run(ctx context.Context, cursor string, types []domain.EventType, fn func(domain.Event)) string {
	failures := 0
	for {
		events, next, err := s.Poll(ctx, cursor, defaultWait, types)
		if ctx.Err() != nil {
			return cursor
		}
		if err != nil {
			failures++
			delay := calculateBackoff(failures)
			s.logger.Warn("event poll failed", "failures", failures, "retryIn", delay, "error", err)
			select {
			case <-ctx.Done():
				return cursor
			case <-time.After(delay):
			}
			continue
		}

		failures = 0
		for _, ev := range events {
			s.logger.Debug("event received", "type", ev.Type, "id", ev.ID)
			fn(ev)
		}
		cursor = next
	}
}

// calculateBackoff returns the delay before the next poll attempt after a
// run of consecutive failures
func calculateBackoff(failures int) time.Duration {
	delay := backoffBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= backoffMax {
			return backoffMax
		}
	}
	if delay > backoffMax {
		return backoffMax
	}
	return delay
}
