package domain

import (
	"testing"
	"time"
)

func TestSnapshotClassify(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	freshTTL := 5 * time.Minute
	expiryTTL := 30 * time.Minute

	tests := []struct {
		name string
		age  time.Duration
		want Freshness
	}{
		{"just written", 0, FreshnessFresh},
		{"inside fresh window", 4*time.Minute + 59*time.Second, FreshnessFresh},
		{"exactly fresh threshold", 5 * time.Minute, FreshnessStale},
		{"inside stale window", 29*time.Minute + 59*time.Second, FreshnessStale},
		{"exactly expiry threshold", 30 * time.Minute, FreshnessExpired},
		{"long expired", 2 * time.Hour, FreshnessExpired},
		{"clock skew into the future", -1 * time.Minute, FreshnessFresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := CachedSnapshot{SavedAt: now.Add(-tt.age).UnixMilli()}
			if got := snap.Classify(now, freshTTL, expiryTTL); got != tt.want {
				t.Errorf("Classify(age=%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestSnapshotAge(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	snap := CachedSnapshot{SavedAt: now.Add(-90 * time.Second).UnixMilli()}
	if got := snap.Age(now); got != 90*time.Second {
		t.Errorf("Age() = %v, want %v", got, 90*time.Second)
	}
}

func TestSeriesLibraries(t *testing.T) {
	data := DashboardData{Libraries: []Library{
		{ID: "a", Type: LibraryTypeMovie},
		{ID: "b", Type: LibraryTypeSeries},
		{ID: "c", Type: LibraryTypeMusic},
		{ID: "d", Type: LibraryTypeSeries},
	}}

	got := data.SeriesLibraries()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "d" {
		t.Errorf("SeriesLibraries() = %+v, want b and d in server order", got)
	}
}

func TestDashboardDataEmpty(t *testing.T) {
	if !(DashboardData{}).Empty() {
		t.Error("zero value should be empty")
	}
	withLibs := DashboardData{Libraries: []Library{{ID: "a"}}}
	if withLibs.Empty() {
		t.Error("data with a library should not be empty")
	}
	withUpcoming := DashboardData{Upcoming: []ScheduleEntry{{SeriesID: "s"}}}
	if withUpcoming.Empty() {
		t.Error("data with schedule entries should not be empty")
	}
}
