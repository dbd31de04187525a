package librarian

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/graphql"
)

// Client provides typed access to the Librarian GraphQL API
type Client struct {
	gql    *graphql.Client
	logger *slog.Logger
}

// Compile-time interface checks
var (
	_ domain.LibraryRepository  = (*Client)(nil)
	_ domain.ScheduleRepository = (*Client)(nil)
	_ domain.QueueRepository    = (*Client)(nil)
	_ domain.SearchRepository   = (*Client)(nil)
)

// NewClient creates a typed API client over the GraphQL transport
func NewClient(gql *graphql.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gql: gql, logger: logger}
}

// Libraries returns all configured libraries
func (c *Client) Libraries(ctx context.Context) ([]domain.Library, error) {
	var payload struct {
		Libraries []libraryDTO `json:"libraries"`
	}
	if err := c.gql.Do(ctx, queryLibraries, nil, &payload); err != nil {
		return nil, err
	}
	return mapLibraries(payload.Libraries), nil
}

// RecentSeries returns the most recently added series in a library
func (c *Client) RecentSeries(ctx context.Context, libraryID string, limit int) ([]domain.Series, error) {
	vars := map[string]any{
		"libraryId": libraryID,
		"limit":     limit,
	}
	var payload struct {
		Series []seriesDTO `json:"series"`
	}
	if err := c.gql.Do(ctx, queryRecentSeries, vars, &payload); err != nil {
		return nil, err
	}
	return mapSeriesList(payload.Series), nil
}

// Upcoming returns the global schedule for the next number of days
func (c *Client) Upcoming(ctx context.Context, days int) ([]domain.ScheduleEntry, error) {
	vars := map[string]any{"days": days}
	var payload struct {
		Upcoming []scheduleEntryDTO `json:"upcoming"`
	}
	if err := c.gql.Do(ctx, queryUpcoming, vars, &payload); err != nil {
		return nil, err
	}
	return mapScheduleEntries(payload.Upcoming), nil
}

// Calendar returns the schedule scoped to the given libraries
func (c *Client) Calendar(ctx context.Context, libraryIDs []string, days int) ([]domain.ScheduleEntry, error) {
	vars := map[string]any{
		"libraryIds": libraryIDs,
		"days":       days,
	}
	var payload struct {
		Calendar []scheduleEntryDTO `json:"calendar"`
	}
	if err := c.gql.Do(ctx, queryCalendar, vars, &payload); err != nil {
		return nil, err
	}
	return mapScheduleEntries(payload.Calendar), nil
}

// Queue returns the server's active download queue
func (c *Client) Queue(ctx context.Context) ([]domain.Download, error) {
	var payload struct {
		Queue []downloadDTO `json:"queue"`
	}
	if err := c.gql.Do(ctx, queryQueue, nil, &payload); err != nil {
		return nil, err
	}
	return mapDownloads(payload.Queue), nil
}

// Search performs a server-side search across all libraries
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	vars := map[string]any{"query": query}
	var payload struct {
		Search []searchHitDTO `json:"search"`
	}
	if err := c.gql.Do(ctx, querySearch, vars, &payload); err != nil {
		return nil, err
	}
	return mapSearchHits(payload.Search), nil
}

// SystemStatus returns the server build information. Used to verify a
// server address before saving it.
func (c *Client) SystemStatus(ctx context.Context) (domain.SystemStatus, error) {
	var payload struct {
		SystemStatus systemStatusDTO `json:"systemStatus"`
	}
	if err := c.gql.Do(ctx, querySystemStatus, nil, &payload); err != nil {
		return domain.SystemStatus{}, err
	}
	return mapSystemStatus(payload.SystemStatus), nil
}

// Login authenticates with username and password and returns an API token
// plus the account it belongs to
func (c *Client) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	vars := map[string]any{
		"username": username,
		"password": password,
	}
	var payload struct {
		Login struct {
			Token string  `json:"token"`
			User  userDTO `json:"user"`
		} `json:"login"`
	}
	if err := c.gql.Do(ctx, mutationLogin, vars, &payload); err != nil {
		// Credential rejections surface as GraphQL-layer errors
		var reqErr *graphql.RequestError
		if errors.As(err, &reqErr) {
			c.logger.Debug("login rejected", "username", username, "error", reqErr)
			return "", domain.User{}, domain.ErrAuthFailed
		}
		return "", domain.User{}, err
	}
	if payload.Login.Token == "" {
		return "", domain.User{}, domain.ErrAuthFailed
	}
	return payload.Login.Token, mapUser(payload.Login.User), nil
}
