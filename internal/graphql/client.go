package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Librarian/1.0"
)

// Client executes GraphQL documents against a Librarian server
type Client struct {
	baseURL    string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the server at serverURL. The address may omit
// the scheme and may carry a stray path; both are normalized away.
func New(serverURL, apiKey string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := normalizeBaseURL(serverURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:  base,
		endpoint: base + "/graphql",
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}, nil
}

// BaseURL returns the normalized server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAPIKey updates the key sent with subsequent requests
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

// request is the GraphQL-over-HTTP POST body
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// ResponseError is a single entry from the response envelope's errors list
type ResponseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// RequestError reports a document the server accepted over HTTP but
// rejected at the GraphQL layer
type RequestError struct {
	Errors []ResponseError
}

func (e *RequestError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, re := range e.Errors {
		msgs = append(msgs, re.Message)
	}
	return fmt.Sprintf("graphql: %s", strings.Join(msgs, "; "))
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors"`
}

// Do executes a GraphQL document and decodes the data payload into out.
// out may be nil when the caller only cares about success.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	c.logger.Debug("graphql request", "operation", operationName(query))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("graphql request failed", "error", err)
		return domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthFailed
	default:
		c.logger.Error("graphql request error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if len(env.Errors) > 0 {
		reqErr := &RequestError{Errors: env.Errors}
		c.logger.Error("graphql request rejected", "error", reqErr)
		return reqErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	return nil
}

// operationName extracts the document's operation name for logging
func operationName(query string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 {
		return ""
	}
	name := fields[1]
	if i := strings.IndexAny(name, "({"); i >= 0 {
		name = name[:i]
	}
	return name
}

// normalizeBaseURL coerces user-entered server addresses into a clean
// scheme://host[:port] base
func normalizeBaseURL(serverURL string) (string, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		return "", fmt.Errorf("server URL is empty")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", serverURL)
	}

	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}
