package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// minDomainDelay is the minimum spacing between requests to one host.
// Release feed hosts tend to rate-limit aggressively.
const minDomainDelay = 500 * time.Millisecond

// FeedItem is a single release entry from a feed
type FeedItem struct {
	Title     string
	Published time.Time
	Size      int64 // Bytes from the enclosure, 0 when absent
}

// FeedInfo is the parsed preview of a release feed
type FeedInfo struct {
	Title string
	Items []FeedItem
}

// Preview fetches and parses release RSS feeds so a feed URL can be
// checked before handing it to the server. Requests to the same host are
// spaced out to stay polite.
type Preview struct {
	parser *gofeed.Parser
	logger *slog.Logger

	mu          sync.Mutex
	lastRequest map[string]time.Time
}

// NewPreview creates a feed preview fetcher
func NewPreview(logger *slog.Logger) *Preview {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preview{
		parser:      gofeed.NewParser(),
		logger:      logger,
		lastRequest: make(map[string]time.Time),
	}
}

// Fetch retrieves and parses the feed at feedURL
func (p *Preview) Fetch(ctx context.Context, feedURL string) (FeedInfo, error) {
	if err := p.waitForDomain(ctx, extractDomain(feedURL)); err != nil {
		return FeedInfo{}, err
	}

	parsed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return FeedInfo{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	info := FeedInfo{Title: parsed.Title}
	for _, item := range parsed.Items {
		fi := FeedItem{Title: item.Title}
		if item.PublishedParsed != nil {
			fi.Published = *item.PublishedParsed
		}
		for _, enc := range item.Enclosures {
			if n, err := strconv.ParseInt(enc.Length, 10, 64); err == nil && n > 0 {
				fi.Size = n
				break
			}
		}
		info.Items = append(info.Items, fi)
	}

	p.logger.Debug("feed preview fetched", "url", feedURL, "title", info.Title, "items", len(info.Items))
	return info, nil
}

// waitForDomain enforces the minimum delay between requests to one host
func (p *Preview) waitForDomain(ctx context.Context, domain string) error {
	p.mu.Lock()
	last := p.lastRequest[domain]
	p.lastRequest[domain] = time.Now()
	p.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	elapsed := time.Since(last)
	if elapsed >= minDomainDelay {
		return nil
	}
	select {
	case <-time.After(minDomainDelay - elapsed):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// extractDomain gets the host from a URL
func extractDomain(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	return u.Host
}
