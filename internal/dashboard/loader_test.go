package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callLog records repository calls in arrival order
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type fakeLibraryRepo struct {
	log       *callLog
	libraries []domain.Library
	err       error
	recentErr error

	mu        sync.Mutex
	active    int
	maxActive int
	limits    []int
}

func (r *fakeLibraryRepo) Libraries(ctx context.Context) ([]domain.Library, error) {
	r.log.add("libraries")
	return r.libraries, r.err
}

func (r *fakeLibraryRepo) RecentSeries(ctx context.Context, libraryID string, limit int) ([]domain.Series, error) {
	r.log.add("recent:" + libraryID)
	r.mu.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.limits = append(r.limits, limit)
	r.mu.Unlock()

	// Hold the call open long enough for an overlapping call to register
	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	if r.recentErr != nil {
		return nil, r.recentErr
	}
	return []domain.Series{{ID: "s-" + libraryID, LibraryID: libraryID, Title: "Series " + libraryID}}, nil
}

type fakeScheduleRepo struct {
	log         *callLog
	upcoming    []domain.ScheduleEntry
	calendar    []domain.ScheduleEntry
	upcomingErr error
	calendarErr error

	// When both are set, each schedule query waits for the other to start.
	// A loader running them one at a time times out here.
	upcomingStarted chan struct{}
	calendarStarted chan struct{}

	mu           sync.Mutex
	upcomingDays int
	calendarDays int
	calendarIDs  []string
}

func (r *fakeScheduleRepo) Upcoming(ctx context.Context, days int) ([]domain.ScheduleEntry, error) {
	r.log.add("upcoming")
	r.mu.Lock()
	r.upcomingDays = days
	r.mu.Unlock()

	if r.upcomingStarted != nil {
		close(r.upcomingStarted)
		select {
		case <-r.calendarStarted:
		case <-time.After(2 * time.Second):
			return nil, errors.New("calendar query never started while upcoming was in flight")
		}
	}
	return r.upcoming, r.upcomingErr
}

func (r *fakeScheduleRepo) Calendar(ctx context.Context, libraryIDs []string, days int) ([]domain.ScheduleEntry, error) {
	r.log.add("calendar")
	r.mu.Lock()
	r.calendarDays = days
	r.calendarIDs = append([]string(nil), libraryIDs...)
	r.mu.Unlock()

	if r.calendarStarted != nil {
		close(r.calendarStarted)
		select {
		case <-r.upcomingStarted:
		case <-time.After(2 * time.Second):
			return nil, errors.New("upcoming query never started while calendar was in flight")
		}
	}
	return r.calendar, r.calendarErr
}

func testLibraries() []domain.Library {
	return []domain.Library{
		{ID: "tv-1", Name: "TV", Type: domain.LibraryTypeSeries},
		{ID: "movies", Name: "Movies", Type: domain.LibraryTypeMovie},
		{ID: "tv-2", Name: "Anime", Type: domain.LibraryTypeSeries},
		{ID: "tv-3", Name: "Documentaries", Type: domain.LibraryTypeSeries},
	}
}

func TestLoaderFetchOrder(t *testing.T) {
	log := &callLog{}
	libRepo := &fakeLibraryRepo{log: log, libraries: testLibraries()}
	schedRepo := &fakeScheduleRepo{
		log:             log,
		upcoming:        []domain.ScheduleEntry{{SeriesID: "s1", SeasonNum: 1, EpisodeNum: 2}},
		calendar:        []domain.ScheduleEntry{{SeriesID: "s2", SeasonNum: 3, EpisodeNum: 4}},
		upcomingStarted: make(chan struct{}),
		calendarStarted: make(chan struct{}),
	}

	l := NewLoader(libRepo, schedRepo, LoaderOptions{}, testLogger())
	data, err := l.FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard() error = %v", err)
	}

	calls := log.list()
	if len(calls) != 5 {
		t.Fatalf("calls = %v, want 5 entries", calls)
	}
	if calls[0] != "libraries" {
		t.Errorf("first call = %q, want %q", calls[0], "libraries")
	}
	schedules := map[string]bool{calls[1]: true, calls[2]: true}
	if !schedules["upcoming"] || !schedules["calendar"] {
		t.Errorf("calls 2-3 = %v, want upcoming and calendar", calls[1:3])
	}
	if got := strings.Join(calls[3:], ","); got != "recent:tv-1,recent:tv-2" {
		t.Errorf("recent-series calls = %q, want first two series libraries in order", got)
	}
	if libRepo.maxActive != 1 {
		t.Errorf("max concurrent recent-series calls = %d, want 1", libRepo.maxActive)
	}

	if got := strings.Join(schedRepo.calendarIDs, ","); got != "tv-1,tv-2,tv-3" {
		t.Errorf("calendar library IDs = %q, want all series libraries", got)
	}
	if schedRepo.upcomingDays != defaultUpcomingDays {
		t.Errorf("upcoming days = %d, want %d", schedRepo.upcomingDays, defaultUpcomingDays)
	}
	if schedRepo.calendarDays != defaultCalendarDays {
		t.Errorf("calendar days = %d, want %d", schedRepo.calendarDays, defaultCalendarDays)
	}
	for _, limit := range libRepo.limits {
		if limit != defaultRecentSeriesLimit {
			t.Errorf("recent-series limit = %d, want %d", limit, defaultRecentSeriesLimit)
		}
	}

	if len(data.Libraries) != 4 || len(data.Upcoming) != 1 || len(data.Calendar) != 1 {
		t.Errorf("data sizes = %d/%d/%d, want 4/1/1", len(data.Libraries), len(data.Upcoming), len(data.Calendar))
	}
	if len(data.RecentSeries) != 2 {
		t.Fatalf("RecentSeries has %d libraries, want 2", len(data.RecentSeries))
	}
	if got := data.RecentSeries["tv-1"]; len(got) != 1 || got[0].LibraryID != "tv-1" {
		t.Errorf("RecentSeries[tv-1] = %+v, want one series for that library", got)
	}
	if _, ok := data.RecentSeries["tv-3"]; ok {
		t.Error("RecentSeries includes tv-3, want it skipped past the library cap")
	}
}

func TestLoaderCustomOptions(t *testing.T) {
	log := &callLog{}
	libRepo := &fakeLibraryRepo{log: log, libraries: testLibraries()}
	schedRepo := &fakeScheduleRepo{log: log}

	opts := LoaderOptions{UpcomingDays: 3, CalendarDays: 5, SeriesLibraryCap: 1, RecentSeriesLimit: 4}
	l := NewLoader(libRepo, schedRepo, opts, testLogger())
	data, err := l.FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard() error = %v", err)
	}

	if schedRepo.upcomingDays != 3 || schedRepo.calendarDays != 5 {
		t.Errorf("days = %d/%d, want 3/5", schedRepo.upcomingDays, schedRepo.calendarDays)
	}
	if len(data.RecentSeries) != 1 {
		t.Errorf("RecentSeries has %d libraries, want 1", len(data.RecentSeries))
	}
	if len(libRepo.limits) != 1 || libRepo.limits[0] != 4 {
		t.Errorf("recent-series limits = %v, want [4]", libRepo.limits)
	}
}

func TestLoaderLibrariesErrorAborts(t *testing.T) {
	log := &callLog{}
	cause := errors.New("server offline")
	libRepo := &fakeLibraryRepo{log: log, err: cause}
	schedRepo := &fakeScheduleRepo{log: log}

	l := NewLoader(libRepo, schedRepo, LoaderOptions{}, testLogger())
	_, err := l.FetchDashboard(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("FetchDashboard() error = %v, want wrapped %v", err, cause)
	}

	if calls := log.list(); len(calls) != 1 {
		t.Errorf("calls = %v, want only the libraries query", calls)
	}
}

func TestLoaderScheduleErrors(t *testing.T) {
	cause := errors.New("bad gateway")

	cases := []struct {
		name string
		set  func(*fakeScheduleRepo)
	}{
		{"upcoming", func(r *fakeScheduleRepo) { r.upcomingErr = cause }},
		{"calendar", func(r *fakeScheduleRepo) { r.calendarErr = cause }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &callLog{}
			libRepo := &fakeLibraryRepo{log: log, libraries: testLibraries()}
			schedRepo := &fakeScheduleRepo{log: log}
			tc.set(schedRepo)

			l := NewLoader(libRepo, schedRepo, LoaderOptions{}, testLogger())
			_, err := l.FetchDashboard(context.Background())
			if !errors.Is(err, cause) {
				t.Fatalf("FetchDashboard() error = %v, want wrapped %v", err, cause)
			}
			for _, call := range log.list() {
				if strings.HasPrefix(call, "recent:") {
					t.Errorf("recent-series query %q ran after a schedule failure", call)
				}
			}
		})
	}
}

func TestLoaderRecentSeriesError(t *testing.T) {
	log := &callLog{}
	cause := errors.New("library vanished")
	libRepo := &fakeLibraryRepo{log: log, libraries: testLibraries(), recentErr: cause}
	schedRepo := &fakeScheduleRepo{log: log}

	l := NewLoader(libRepo, schedRepo, LoaderOptions{}, testLogger())
	_, err := l.FetchDashboard(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("FetchDashboard() error = %v, want wrapped %v", err, cause)
	}
	if !strings.Contains(err.Error(), "TV") {
		t.Errorf("error = %v, want the failing library named", err)
	}
}

func TestLoaderNoSeriesLibraries(t *testing.T) {
	log := &callLog{}
	libRepo := &fakeLibraryRepo{log: log, libraries: []domain.Library{
		{ID: "movies", Name: "Movies", Type: domain.LibraryTypeMovie},
		{ID: "music", Name: "Music", Type: domain.LibraryTypeMusic},
	}}
	schedRepo := &fakeScheduleRepo{log: log, upcoming: []domain.ScheduleEntry{{SeriesID: "s1"}}}

	l := NewLoader(libRepo, schedRepo, LoaderOptions{}, testLogger())
	data, err := l.FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard() error = %v", err)
	}

	if len(schedRepo.calendarIDs) != 0 {
		t.Errorf("calendar library IDs = %v, want none", schedRepo.calendarIDs)
	}
	if len(data.RecentSeries) != 0 {
		t.Errorf("RecentSeries = %v, want empty", data.RecentSeries)
	}
	if len(data.Upcoming) != 1 {
		t.Errorf("Upcoming has %d entries, want 1", len(data.Upcoming))
	}
}
