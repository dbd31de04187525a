package domain

import "time"

// DashboardData bundles the query results the dashboard view renders.
// RecentSeries is keyed by library ID. Upcoming holds the global schedule
// window; Calendar holds the window scoped to series libraries.
type DashboardData struct {
	Libraries    []Library           `json:"libraries"`
	RecentSeries map[string][]Series `json:"recentSeries"`
	Upcoming     []ScheduleEntry     `json:"upcoming"`
	Calendar     []ScheduleEntry     `json:"calendar"`
}

// Empty reports whether the data contains no results at all
func (d DashboardData) Empty() bool {
	return len(d.Libraries) == 0 && len(d.RecentSeries) == 0 &&
		len(d.Upcoming) == 0 && len(d.Calendar) == 0
}

// SeriesLibraries returns the libraries holding TV series, in server order
func (d DashboardData) SeriesLibraries() []Library {
	var libs []Library
	for _, lib := range d.Libraries {
		if lib.Type == LibraryTypeSeries {
			libs = append(libs, lib)
		}
	}
	return libs
}

// CachedSnapshot is the persisted bundle of dashboard data plus ownership
// metadata. A snapshot is only valid for the user that produced it.
type CachedSnapshot struct {
	Data    DashboardData `json:"data"`
	SavedAt int64         `json:"savedAt"` // Unix milliseconds at write time
	UserID  string        `json:"userId"`  // Owning user
}

// Age returns how long ago the snapshot was written
func (s CachedSnapshot) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-s.SavedAt) * time.Millisecond
}

// Freshness classifies a snapshot's age against the cache thresholds
type Freshness int

const (
	// FreshnessFresh means the snapshot is served as-is with no background action
	FreshnessFresh Freshness = iota

	// FreshnessStale means the snapshot is served immediately while a
	// background refresh runs
	FreshnessStale

	// FreshnessExpired means the snapshot is treated as absent
	FreshnessExpired
)

// String returns a human-readable representation of the freshness class
func (f Freshness) String() string {
	switch f {
	case FreshnessFresh:
		return "fresh"
	case FreshnessStale:
		return "stale"
	case FreshnessExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify buckets the snapshot's age: fresh below freshTTL, stale from
// freshTTL up to expiryTTL, expired at expiryTTL and beyond.
func (s CachedSnapshot) Classify(now time.Time, freshTTL, expiryTTL time.Duration) Freshness {
	age := s.Age(now)
	switch {
	case age < freshTTL:
		return FreshnessFresh
	case age < expiryTTL:
		return FreshnessStale
	default:
		return FreshnessExpired
	}
}
