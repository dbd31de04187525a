package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/getlibrarian/librarian/internal/domain"
	rank "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// EntryKind identifies what an index entry points at
type EntryKind int

const (
	KindLibrary EntryKind = iota
	KindSeries
	KindEpisode
	KindItem // Server search hit outside the cached dashboard content
)

// Entry is a searchable item from the cached dashboard data with enough
// metadata to navigate to it
type Entry struct {
	Kind      EntryKind
	ID        string // Library, series, or series ID for episodes
	Title     string // Display title
	LibraryID string
	Detail    string // Secondary line (library name, episode code, ...)
}

// Result is a match with highlight metadata
type Result struct {
	Entry
	MatchedIndexes []int // Character positions in Title that matched
	Score          int   // Higher is better (sahilm/fuzzy convention)
}

// Index implements sahilm/fuzzy.Source over the dashboard entries.
// Titles are lowered once at build time so matching allocates nothing.
type Index struct {
	entries     []Entry
	lowerTitles []string
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of entries (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.entries) }

func (idx *Index) add(e Entry) {
	idx.entries = append(idx.entries, e)
	idx.lowerTitles = append(idx.lowerTitles, strings.ToLower(e.Title))
}

// Service answers searches against the server with a local fuzzy index as
// fallback. The index is rebuilt from each dashboard snapshot, so local
// results are exactly as current as the cache.
type Service struct {
	repo   domain.SearchRepository
	logger *slog.Logger

	mu    sync.RWMutex
	index *Index
}

// NewService creates a search service over the server-side repository
func NewService(repo domain.SearchRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		index:  &Index{},
	}
}

// Rebuild replaces the local index with the contents of a dashboard data
// set. Duplicate series appearing in both recent lists and the schedule
// are indexed once.
func (s *Service) Rebuild(data domain.DashboardData) {
	idx := &Index{}
	seen := make(map[string]bool)

	for _, lib := range data.Libraries {
		idx.add(Entry{
			Kind:   KindLibrary,
			ID:     lib.ID,
			Title:  lib.Name,
			Detail: lib.Type.Label(),
		})
	}
	for libID, series := range data.RecentSeries {
		for _, sr := range series {
			key := "series:" + sr.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			idx.add(Entry{
				Kind:      KindSeries,
				ID:        sr.ID,
				Title:     sr.Title,
				LibraryID: libID,
			})
		}
	}
	for _, entry := range append(append([]domain.ScheduleEntry{}, data.Upcoming...), data.Calendar...) {
		key := "episode:" + entry.SeriesID + ":" + entry.EpisodeCode()
		if seen[key] {
			continue
		}
		seen[key] = true
		idx.add(Entry{
			Kind:      KindEpisode,
			ID:        entry.SeriesID,
			Title:     entry.SeriesTitle + " " + entry.EpisodeCode(),
			LibraryID: entry.LibraryID,
			Detail:    entry.EpisodeTitle,
		})
	}

	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()

	s.logger.Debug("search index rebuilt", "entries", idx.Len())
}

// Local performs fuzzy search against the local index only
func (s *Service) Local(query string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if query == "" || s.index.Len() == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), s.index)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Entry:          s.index.entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// Search asks the server first and falls back to the local index when it
// is unreachable. Server results are re-ranked locally so exact and prefix
// matches sort above looser ones.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, nil
	}

	s.logger.Debug("searching", "query", query)

	hits, err := s.repo.Search(ctx, query)
	if err != nil {
		s.logger.Warn("server search failed, falling back to local", "error", err)
		return s.Local(query), nil
	}

	results := rankHits(hits, query)
	s.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

// rankHits orders server results by match quality against the query
func rankHits(hits []domain.SearchHit, query string) []Result {
	query = strings.ToLower(query)

	type rankedHit struct {
		hit   domain.SearchHit
		score int
	}

	ranked := make([]rankedHit, 0, len(hits))
	for _, hit := range hits {
		ranked = append(ranked, rankedHit{hit: hit, score: matchScore(strings.ToLower(hit.Title), query)})
	}

	// Lower score is better
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		kind := KindItem
		if r.hit.Type == string(domain.LibraryTypeSeries) {
			kind = KindSeries
		}
		results[i] = Result{
			Entry: Entry{
				Kind:      kind,
				ID:        r.hit.ID,
				Title:     r.hit.Title,
				LibraryID: r.hit.LibraryID,
				Detail:    r.hit.Type,
			},
			Score: -r.score,
		}
	}
	return results
}

// matchScore rates how well title matches query; lower is better
func matchScore(title, query string) int {
	if title == query {
		return 0
	}
	if strings.HasPrefix(title, query) {
		return 10
	}
	if strings.Contains(title, query) {
		return 50
	}
	if rank.MatchFold(query, title) {
		return 75
	}
	return 100 + rank.LevenshteinDistance(query, title)
}
