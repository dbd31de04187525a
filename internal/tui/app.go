package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/getlibrarian/librarian/internal/dashboard"
	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/events"
	"github.com/getlibrarian/librarian/internal/search"
)

// ViewState represents the active view
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewQueue
	ViewSearch
	ViewHelp
)

// streamTypes are the change notifications the dashboard reacts to
var streamTypes = []domain.EventType{
	domain.EventLibraryChanged,
	domain.EventDownloadCompleted,
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ViewState
	Keys  KeyMap

	// Collaborators
	Cache     *dashboard.Cache
	QueueRepo domain.QueueRepository
	SearchSvc *search.Service
	Stream    *events.Stream
	Store     domain.SnapshotStorage
	Logger    *slog.Logger

	// Session
	UserID     string
	Username   string
	ServerName string

	// Data
	Dash    dashboard.Result
	Queue   []domain.Download
	Results []search.Result

	// UI state
	SearchInput  textinput.Model
	Cursor       int
	Width        int
	Height       int
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int

	// Focused mirrors the terminal's focus-reported state. Events that
	// arrive while unfocused only mark the cache stale.
	Focused bool

	// Event stream lifecycle; non-nil cancel means the stream is running
	streamCancel context.CancelFunc
	eventCh      chan domain.Event

	prevView ViewState // View to return to from search/help
}

// NewModel creates the application model
func NewModel(
	cache *dashboard.Cache,
	queueRepo domain.QueueRepository,
	searchSvc *search.Service,
	stream *events.Stream,
	store domain.SnapshotStorage,
	userID, username, serverName string,
	logger *slog.Logger,
) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	input := textinput.New()
	input.Placeholder = "search libraries, series, episodes..."
	input.CharLimit = 100

	return &Model{
		State:      ViewDashboard,
		Keys:       DefaultKeyMap(),
		Cache:      cache,
		QueueRepo:  queueRepo,
		SearchSvc:  searchSvc,
		Stream:     stream,
		Store:      store,
		Logger:     logger,
		UserID:     userID,
		Username:   username,
		ServerName: serverName,
		SearchInput: input,
		Focused:    true,
	}
}

// Init starts the initial dashboard load, the cache update pump, and the
// event stream for the dashboard view
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		LoadDashboardCmd(m.Cache, m.UserID),
		WaitForCacheUpdateCmd(m.Cache),
		TickCmd(),
	}
	if cmd := m.startStream(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// startStream opens the event subscription for the dashboard view. The
// pump goroutine forwards events into eventCh and persists the cursor
// when the stream stops.
func (m *Model) startStream() tea.Cmd {
	if m.streamCancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan domain.Event)
	m.streamCancel = cancel
	m.eventCh = ch

	go func() {
		cursor := m.Store.LoadEventCursor()
		last := m.Stream.Run(ctx, cursor, streamTypes, func(ev domain.Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		})
		if err := m.Store.SaveEventCursor(last); err != nil {
			m.Logger.Warn("persisting event cursor failed", "error", err)
		}
		close(ch)
	}()

	return WaitForEventCmd(ch)
}

// stopStream tears down the event subscription. Outstanding cache
// refreshes are not aborted; only future event delivery stops.
func (m *Model) stopStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// setView switches the active view, managing the dashboard subscription
func (m *Model) setView(v ViewState) tea.Cmd {
	if m.State == v {
		return nil
	}
	prev := m.State
	m.State = v
	m.Cursor = 0

	var cmds []tea.Cmd
	switch v {
	case ViewDashboard:
		if cmd := m.startStream(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.Dash.Stale {
			cmds = append(cmds, RefetchCmd(m.Cache))
		}
	case ViewQueue:
		m.stopStream()
		cmds = append(cmds, LoadQueueCmd(m.QueueRepo))
	case ViewSearch, ViewHelp:
		// Overlays keep the underlying subscription as-is
		m.prevView = prev
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.FocusMsg:
		m.Focused = true
		return m, nil

	case tea.BlurMsg:
		m.Focused = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DashboardMsg:
		m.Dash = msg.Result
		m.SearchSvc.Rebuild(msg.Result.Data)
		return m, nil

	case CacheUpdatedMsg:
		m.Dash = m.Cache.Result()
		m.SearchSvc.Rebuild(m.Dash.Data)
		return m, WaitForCacheUpdateCmd(m.Cache)

	case EventMsg:
		m.Cache.HandleEvent(msg.Event, m.Focused)
		m.Logger.Debug("change event handled", "type", msg.Event.Type, "focused", m.Focused)
		return m, WaitForEventCmd(m.eventCh)

	case StreamStoppedMsg:
		// Pump exited after stopStream or process teardown; nothing to re-arm
		return m, nil

	case QueueMsg:
		m.Queue = msg.Queue
		return m, nil

	case SearchResultsMsg:
		if msg.Query == m.SearchInput.Value() {
			m.Results = msg.Results
			m.Cursor = 0
		}
		return m, nil

	case LogoutDoneMsg:
		return m, tea.Quit

	case ErrMsg:
		m.Logger.Error("tui error", "context", msg.Context, "error", msg.Err)
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, ClearStatusCmd()

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd()

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case TickMsg:
		if m.Dash.Fetching || m.Dash.Loading {
			m.SpinnerFrame++
		}
		return m, TickCmd()
	}

	return m, nil
}

// handleKey routes key presses by view
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search input swallows everything except escape and enter
	if m.State == ViewSearch {
		switch {
		case key.Matches(msg, m.Keys.Escape):
			m.SearchInput.Blur()
			m.SearchInput.SetValue("")
			m.Results = nil
			m.State = m.prevView
			return m, nil
		case key.Matches(msg, m.Keys.Enter):
			return m, SearchCmd(m.SearchSvc, m.SearchInput.Value())
		case key.Matches(msg, m.Keys.Up):
			if m.Cursor > 0 {
				m.Cursor--
			}
			return m, nil
		case key.Matches(msg, m.Keys.Down):
			if m.Cursor < len(m.Results)-1 {
				m.Cursor++
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.SearchInput, cmd = m.SearchInput.Update(msg)
		// Live local results while typing; enter asks the server
		m.Results = m.SearchSvc.Local(m.SearchInput.Value())
		m.Cursor = 0
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.stopStream()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		if m.State == ViewHelp {
			m.State = m.prevView
			return m, nil
		}
		return m, m.setView(ViewHelp)

	case key.Matches(msg, m.Keys.Escape):
		if m.State == ViewHelp {
			m.State = m.prevView
		}
		return m, nil

	case key.Matches(msg, m.Keys.Search):
		cmd := m.setView(ViewSearch)
		m.SearchInput.Focus()
		return m, tea.Batch(cmd, textinput.Blink)

	case key.Matches(msg, m.Keys.Dashboard):
		return m, m.setView(ViewDashboard)

	case key.Matches(msg, m.Keys.Queue):
		return m, m.setView(ViewQueue)

	case key.Matches(msg, m.Keys.TabNext):
		if m.State == ViewDashboard {
			return m, m.setView(ViewQueue)
		}
		return m, m.setView(ViewDashboard)

	case key.Matches(msg, m.Keys.Refresh):
		switch m.State {
		case ViewQueue:
			return m, LoadQueueCmd(m.QueueRepo)
		default:
			return m, RefetchCmd(m.Cache)
		}

	case key.Matches(msg, m.Keys.Logout):
		m.stopStream()
		return m, LogoutCmd(m.Cache)

	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < m.listLen()-1 {
			m.Cursor++
		}
		return m, nil

	case key.Matches(msg, m.Keys.Home):
		m.Cursor = 0
		return m, nil

	case key.Matches(msg, m.Keys.End):
		if n := m.listLen(); n > 0 {
			m.Cursor = n - 1
		}
		return m, nil
	}

	return m, nil
}

// listLen returns the length of the list the cursor moves over
func (m *Model) listLen() int {
	switch m.State {
	case ViewQueue:
		return len(m.Queue)
	case ViewDashboard:
		return len(m.Dash.Data.Upcoming)
	default:
		return 0
	}
}
