package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlibrarian/librarian/internal/domain"
)

const (
	defaultUpcomingDays      = 7
	defaultCalendarDays      = 14
	defaultSeriesLibraryCap  = 2
	defaultRecentSeriesLimit = 10
)

// LoaderOptions tune the dashboard queries. Zero values select the defaults.
type LoaderOptions struct {
	UpcomingDays      int // Window for the global schedule
	CalendarDays      int // Window for the series-library calendar
	SeriesLibraryCap  int // How many series libraries get a recent-series query
	RecentSeriesLimit int // Recent series fetched per library
}

// Loader assembles a complete dashboard data set. The individual queries
// are cheap but slow in combination, so the shape is fixed: libraries
// first, then the two schedule windows concurrently, then recent series
// for a bounded number of libraries sequentially.
type Loader struct {
	libraries domain.LibraryRepository
	schedule  domain.ScheduleRepository
	logger    *slog.Logger

	upcomingDays      int
	calendarDays      int
	seriesLibraryCap  int
	recentSeriesLimit int
}

var _ Fetcher = (*Loader)(nil)

// NewLoader creates a loader over the library and schedule repositories
func NewLoader(libraries domain.LibraryRepository, schedule domain.ScheduleRepository, opts LoaderOptions, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = defaultUpcomingDays
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = defaultCalendarDays
	}
	if opts.SeriesLibraryCap <= 0 {
		opts.SeriesLibraryCap = defaultSeriesLibraryCap
	}
	if opts.RecentSeriesLimit <= 0 {
		opts.RecentSeriesLimit = defaultRecentSeriesLimit
	}
	return &Loader{
		libraries:         libraries,
		schedule:          schedule,
		logger:            logger,
		upcomingDays:      opts.UpcomingDays,
		calendarDays:      opts.CalendarDays,
		seriesLibraryCap:  opts.SeriesLibraryCap,
		recentSeriesLimit: opts.RecentSeriesLimit,
	}
}

// FetchDashboard runs the dashboard queries. Any failed query fails the
// whole fetch; partial data never replaces a cached snapshot.
func (l *Loader) FetchDashboard(ctx context.Context) (domain.DashboardData, error) {
	libs, err := l.libraries.Libraries(ctx)
	if err != nil {
		return domain.DashboardData{}, fmt.Errorf("fetch libraries: %w", err)
	}

	data := domain.DashboardData{Libraries: libs}
	seriesLibs := data.SeriesLibraries()
	seriesIDs := make([]string, 0, len(seriesLibs))
	for _, lib := range seriesLibs {
		seriesIDs = append(seriesIDs, lib.ID)
	}

	// The two schedule windows are independent; fetch them concurrently
	var (
		wg          sync.WaitGroup
		upcoming    []domain.ScheduleEntry
		calendar    []domain.ScheduleEntry
		upcomingErr error
		calendarErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		upcoming, upcomingErr = l.schedule.Upcoming(ctx, l.upcomingDays)
	}()
	go func() {
		defer wg.Done()
		calendar, calendarErr = l.schedule.Calendar(ctx, seriesIDs, l.calendarDays)
	}()
	wg.Wait()

	if upcomingErr != nil {
		return domain.DashboardData{}, fmt.Errorf("fetch upcoming: %w", upcomingErr)
	}
	if calendarErr != nil {
		return domain.DashboardData{}, fmt.Errorf("fetch calendar: %w", calendarErr)
	}
	data.Upcoming = upcoming
	data.Calendar = calendar

	// Recent series for the first few series libraries, fetched one at a
	// time to bound the cost of a refresh
	data.RecentSeries = make(map[string][]domain.Series)
	for i, lib := range seriesLibs {
		if i >= l.seriesLibraryCap {
			break
		}
		recent, err := l.libraries.RecentSeries(ctx, lib.ID, l.recentSeriesLimit)
		if err != nil {
			return domain.DashboardData{}, fmt.Errorf("fetch recent series for %s: %w", lib.Name, err)
		}
		data.RecentSeries[lib.ID] = recent
	}

	l.logger.Debug("dashboard fetched",
		"libraries", len(libs),
		"upcoming", len(upcoming),
		"calendar", len(calendar),
		"recentSeriesLibraries", len(data.RecentSeries))

	return data, nil
}
