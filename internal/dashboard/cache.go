package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
)

const (
	defaultFreshTTL  = 5 * time.Minute
	defaultExpiryTTL = 30 * time.Minute
)

// Fetcher produces a complete dashboard data set from the server
type Fetcher interface {
	FetchDashboard(ctx context.Context) (domain.DashboardData, error)
}

// Result is the dashboard state handed to the view
type Result struct {
	Data     domain.DashboardData
	Loading  bool // No data to show yet; a blocking fetch is or was underway
	Stale    bool // Served data is older than the fresh threshold
	Fetching bool // A refetch is in flight right now
}

// Options tune the cache thresholds. Zero values select the defaults.
type Options struct {
	FreshTTL  time.Duration // Below this age a snapshot is served as-is
	ExpiryTTL time.Duration // At this age a snapshot is treated as absent
	Now       func() time.Time
}

// Cache serves dashboard data with stale-while-revalidate semantics: cached
// data paints immediately while a background refresh brings it up to date.
// Snapshots persist between runs and belong to the user that produced them.
//
// The cache never returns an error; every failure path resolves to "serve
// what we have, try again later".
type Cache struct {
	fetcher Fetcher
	store   domain.SnapshotStorage
	logger  *slog.Logger

	freshTTL  time.Duration
	expiryTTL time.Duration
	now       func() time.Time

	mu       sync.Mutex
	userID   string
	data     domain.DashboardData
	hasData  bool
	loading  bool
	stale    bool
	fetching bool
	checked  bool // Storage consulted for the current user

	updates chan struct{}

	// Lifetime of background refreshes; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a dashboard cache over the given fetcher and storage backend
func New(fetcher Fetcher, store domain.SnapshotStorage, opts Options, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FreshTTL <= 0 {
		opts.FreshTTL = defaultFreshTTL
	}
	if opts.ExpiryTTL <= 0 {
		opts.ExpiryTTL = defaultExpiryTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher:   fetcher,
		store:     store,
		logger:    logger,
		freshTTL:  opts.FreshTTL,
		expiryTTL: opts.ExpiryTTL,
		now:       opts.Now,
		updates:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Load returns dashboard data for the user, reading through the persisted
// snapshot. An empty userID means no authenticated user: the result is an
// empty data set and nothing else happens.
//
// A fresh snapshot is served as-is. A stale one is served immediately while
// one background refresh starts. An expired, missing, or foreign-owned
// snapshot is a miss: Load blocks on a refresh before returning.
func (c *Cache) Load(ctx context.Context, userID string) Result {
	if userID == "" {
		return Result{}
	}

	c.mu.Lock()
	if c.userID != userID {
		c.userID = userID
		c.data = domain.DashboardData{}
		c.hasData = false
		c.loading = false
		c.stale = false
		c.checked = false
	}

	if c.hasData {
		res := c.resultLocked()
		c.mu.Unlock()
		return res
	}

	if !c.checked {
		c.checked = true
		if snap := c.store.LoadSnapshot(); snap != nil && snap.UserID == userID {
			switch snap.Classify(c.now(), c.freshTTL, c.expiryTTL) {
			case domain.FreshnessFresh:
				c.data = snap.Data
				c.hasData = true
				res := c.resultLocked()
				c.mu.Unlock()
				return res
			case domain.FreshnessStale:
				c.data = snap.Data
				c.hasData = true
				c.stale = true
				res := c.resultLocked()
				c.mu.Unlock()
				go c.Refetch(c.ctx)
				return res
			}
			// Expired: fall through to the miss path
		}
	}

	c.loading = true
	c.mu.Unlock()
	c.notify()

	c.Refetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultLocked()
}

// Refetch fetches a complete data set and replaces the cached one. Returns
// false when no user is active or a refetch is already in flight; callers
// do not queue behind each other.
//
// A failed fetch leaves the previous data untouched and persists nothing.
// The error is logged and swallowed.
func (c *Cache) Refetch(ctx context.Context) bool {
	c.mu.Lock()
	if c.fetching || c.userID == "" {
		c.mu.Unlock()
		return false
	}
	c.fetching = true
	userID := c.userID
	c.mu.Unlock()
	c.notify()

	data, err := c.fetcher.FetchDashboard(ctx)

	c.mu.Lock()
	c.fetching = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("dashboard refresh failed, keeping cached data", "user", userID, "error", err)
		c.notify()
		return true
	}
	if c.userID != userID {
		// The user changed mid-flight; this data belongs to nobody now
		c.mu.Unlock()
		c.notify()
		return true
	}

	c.data = data
	c.hasData = true
	c.stale = false
	c.loading = false
	snap := &domain.CachedSnapshot{
		Data:    data,
		SavedAt: c.now().UnixMilli(),
		UserID:  userID,
	}
	// Persist under the lock so a concurrent Clear cannot slip between the
	// ownership check and the write
	if err := c.store.SaveSnapshot(snap); err != nil {
		c.logger.Warn("persisting dashboard snapshot failed", "error", err)
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// HandleEvent applies a change notification. Visibility is sampled by the
// caller at delivery time: a visible view refreshes immediately, a hidden
// one only marks the data stale so the cost is paid when the user returns.
func (c *Cache) HandleEvent(ev domain.Event, visible bool) {
	switch ev.Type {
	case domain.EventLibraryChanged, domain.EventDownloadCompleted:
	default:
		return
	}

	if visible {
		go c.Refetch(c.ctx)
		return
	}
	c.MarkStale()
}

// MarkStale flags the cached data for refresh on the next opportunity
// without touching the network
func (c *Cache) MarkStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.notify()
}

// Result returns the current dashboard state without touching storage or
// the network
func (c *Cache) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultLocked()
}

func (c *Cache) resultLocked() Result {
	return Result{
		Data:     c.data,
		Loading:  c.loading,
		Stale:    c.stale,
		Fetching: c.fetching,
	}
}

// Clear drops the in-memory state and the persisted snapshot. Used on
// logout; afterwards every Load behaves as a full cache miss.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.userID = ""
	c.data = domain.DashboardData{}
	c.hasData = false
	c.loading = false
	c.stale = false
	c.checked = false
	c.store.DeleteSnapshot()
	c.mu.Unlock()

	c.notify()
}

// Updates signals state changes. Notifications coalesce; receivers should
// re-read Result rather than count them.
func (c *Cache) Updates() <-chan struct{} {
	return c.updates
}

func (c *Cache) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Close cancels background refreshes started by the cache itself
func (c *Cache) Close() {
	c.cancel()
}
