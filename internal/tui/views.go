package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/search"
	"github.com/getlibrarian/librarian/internal/tui/styles"
)

// View renders the application
func (m *Model) View() string {
	if m.Width == 0 {
		return ""
	}

	var body string
	switch m.State {
	case ViewDashboard:
		body = m.viewDashboard()
	case ViewQueue:
		body = m.viewQueue()
	case ViewSearch:
		body = m.viewSearch()
	case ViewHelp:
		body = m.viewHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

// viewDashboard renders libraries, recent series, and the upcoming schedule
func (m *Model) viewDashboard() string {
	if m.Dash.Loading {
		return styles.DimStyle.Render(fmt.Sprintf("\n  %s Loading dashboard...",
			styles.SpinnerFrames[m.SpinnerFrame%len(styles.SpinnerFrames)]))
	}

	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Libraries"))
	b.WriteString("\n")
	if len(m.Dash.Data.Libraries) == 0 {
		b.WriteString(styles.DimStyle.Render("  no libraries configured"))
		b.WriteString("\n")
	}
	for _, lib := range m.Dash.Data.Libraries {
		line := fmt.Sprintf("  %-24s %-12s %d items", lib.Name, lib.Type.Label(), lib.ItemCount)
		b.WriteString(styles.NormalItemStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, lib := range m.Dash.Data.SeriesLibraries() {
		recent, ok := m.Dash.Data.RecentSeries[lib.ID]
		if !ok {
			continue
		}
		b.WriteString(styles.TitleStyle.Render("Recently Added — " + lib.Name))
		b.WriteString("\n")
		now := time.Now()
		for _, sr := range recent {
			marker := " "
			if sr.Complete() {
				marker = styles.SuccessStyle.Render("✓")
			}
			line := fmt.Sprintf("  %s %-30s %d/%d episodes  %s",
				marker, truncate(sr.Title, 30), sr.DownloadedCount, sr.EpisodeCount,
				styles.DimStyle.Render(relativeTime(sr.AddedAt, now)))
			b.WriteString(styles.NormalItemStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.TitleStyle.Render("Upcoming"))
	b.WriteString("\n")
	if len(m.Dash.Data.Upcoming) == 0 {
		b.WriteString(styles.DimStyle.Render("  nothing scheduled"))
		b.WriteString("\n")
	}
	for i, entry := range m.Dash.Data.Upcoming {
		line := fmt.Sprintf("%-30s %s  %s  %s",
			truncate(entry.SeriesTitle, 30),
			entry.EpisodeCode(),
			entry.AirsAt.Format("Mon 15:04"),
			styles.DimStyle.Render(entry.Network))
		if i == m.Cursor {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// viewQueue renders the download queue table
func (m *Model) viewQueue() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Download Queue"))
	b.WriteString("\n")

	if len(m.Queue) == 0 {
		b.WriteString(styles.DimStyle.Render("  queue is empty"))
		b.WriteString("\n")
		return b.String()
	}

	for i, dl := range m.Queue {
		status := renderDownloadStatus(dl.Status)
		progress := renderProgressBar(dl.Progress(), 20)
		line := fmt.Sprintf("%s %-40s %s %5.1f%%  %-8s %s",
			status,
			truncate(dl.Title, 40),
			progress,
			dl.Progress()*100,
			dl.FormattedSize(),
			styles.DimStyle.Render(dl.FormattedETA()))
		if i == m.Cursor {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// viewSearch renders the search overlay with highlighted matches
func (m *Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Search"))
	b.WriteString("\n")
	b.WriteString(m.SearchInput.View())
	b.WriteString("\n\n")

	for i, res := range m.Results {
		title := highlightMatches(res.Title, res.MatchedIndexes)
		detail := res.Detail
		if detail == "" {
			detail = kindLabel(res.Kind)
		}
		line := fmt.Sprintf("%s  %s", title, styles.DimStyle.Render(detail))
		if i == m.Cursor {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.Results) == 0 && m.SearchInput.Value() != "" {
		b.WriteString(styles.DimStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	return b.String()
}

// viewHelp renders the key binding reference
func (m *Model) viewHelp() string {
	rows := []struct{ keys, desc string }{
		{"1/d", "dashboard"},
		{"2", "download queue"},
		{"tab", "next view"},
		{"/", "search"},
		{"r", "refresh current view"},
		{"j/k", "move cursor"},
		{"g/G", "top/bottom"},
		{"C-l", "log out"},
		{"?", "toggle help"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			styles.AccentStyle.Render(fmt.Sprintf("%-5s", row.keys)),
			styles.SubtitleStyle.Render(row.desc)))
	}
	return b.String()
}

// statusBar renders the bottom status line: server, freshness, activity,
// and any transient message
func (m *Model) statusBar() string {
	left := styles.AccentStyle.Render(m.ServerName)
	if m.Username != "" {
		left += styles.DimStyle.Render(" · " + m.Username)
	}

	var parts []string
	parts = append(parts, left)

	if m.Dash.Fetching {
		parts = append(parts, styles.SpinnerFrames[m.SpinnerFrame%len(styles.SpinnerFrames)]+" refreshing")
	} else if m.Dash.Stale {
		parts = append(parts, styles.StaleDot+" stale")
	} else if !m.Dash.Loading {
		parts = append(parts, styles.FreshDot+" fresh")
	}

	if m.StatusMsg != "" {
		msg := m.StatusMsg
		if m.StatusIsErr {
			msg = styles.ErrorStyle.Render(msg)
		}
		parts = append(parts, msg)
	}

	parts = append(parts, styles.DimStyle.Render("? help"))

	return styles.StatusBarStyle.Width(m.Width).Render(strings.Join(parts, "  "))
}

// renderDownloadStatus returns a colored one-character status marker
func renderDownloadStatus(s domain.DownloadStatus) string {
	switch s {
	case domain.DownloadActive:
		return styles.DownloadingStyle.Render("↓")
	case domain.DownloadImporting:
		return styles.DownloadingStyle.Render("⇣")
	case domain.DownloadCompleted:
		return styles.CompletedStyle.Render("✓")
	case domain.DownloadFailed:
		return styles.FailedStyle.Render("✗")
	default:
		return styles.QueuedStyle.Render("·")
	}
}

// renderProgressBar renders a fixed-width progress bar
func renderProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return styles.AccentStyle.Render(strings.Repeat("█", filled)) +
		styles.DimStyle.Render(strings.Repeat("░", width-filled))
}

// highlightMatches styles the matched character positions within text
func highlightMatches(text string, indexes []int) string {
	if len(indexes) == 0 {
		return text
	}
	matched := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, r := range text {
		if matched[i] {
			b.WriteString(styles.MatchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// kindLabel names an entry kind for display
func kindLabel(k search.EntryKind) string {
	switch k {
	case search.KindLibrary:
		return "library"
	case search.KindSeries:
		return "series"
	case search.KindEpisode:
		return "episode"
	default:
		return "item"
	}
}

// truncate shortens s to max runes with an ellipsis
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// relativeTime formats how long ago a unix-millisecond timestamp was
func relativeTime(unixMilli int64, now time.Time) string {
	if unixMilli == 0 {
		return ""
	}
	d := now.Sub(time.UnixMilli(unixMilli))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
