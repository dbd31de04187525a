package domain

import (
	"fmt"
	"time"
)

// LibraryType distinguishes library content types
type LibraryType string

const (
	LibraryTypeSeries    LibraryType = "series"
	LibraryTypeMovie     LibraryType = "movie"
	LibraryTypeMusic     LibraryType = "music"
	LibraryTypeAudiobook LibraryType = "audiobook"
)

// Label returns a human-readable name for the library type
func (t LibraryType) Label() string {
	switch t {
	case LibraryTypeSeries:
		return "TV Shows"
	case LibraryTypeMovie:
		return "Movies"
	case LibraryTypeMusic:
		return "Music"
	case LibraryTypeAudiobook:
		return "Audiobooks"
	default:
		return string(t)
	}
}

// Library represents a configured media library on the server
type Library struct {
	ID        string      // Server-assigned unique identifier
	Name      string      // Display name
	Type      LibraryType // Content type
	Path      string      // Root folder on the server
	ItemCount int         // Number of items in the library
	UpdatedAt int64       // Unix timestamp of the last content change
}

// Series represents a tracked TV series within a library
type Series struct {
	ID              string // Server-assigned unique identifier
	LibraryID       string // Parent library ID
	Title           string // Series title
	SortTitle       string // Title used for sorting
	Year            int    // First air year
	Network         string // Broadcasting network
	Status          string // "continuing" or "ended"
	EpisodeCount    int    // Total monitored episodes
	DownloadedCount int    // Episodes with files on disk
	AddedAt         int64  // Unix timestamp when added to the library
}

// MissingCount returns the number of monitored episodes without files
func (s Series) MissingCount() int {
	if s.DownloadedCount >= s.EpisodeCount {
		return 0
	}
	return s.EpisodeCount - s.DownloadedCount
}

// Complete reports whether every monitored episode has a file
func (s Series) Complete() bool {
	return s.EpisodeCount > 0 && s.DownloadedCount >= s.EpisodeCount
}

// DisplaySortTitle returns the sort title, falling back to the title
func (s Series) DisplaySortTitle() string {
	if s.SortTitle != "" {
		return s.SortTitle
	}
	return s.Title
}

// ScheduleEntry represents an upcoming episode airing
type ScheduleEntry struct {
	SeriesID     string    // Parent series ID
	SeriesTitle  string    // Parent series title
	EpisodeTitle string    // Episode title
	SeasonNum    int       // Season number (0 = specials)
	EpisodeNum   int       // Episode number within the season
	AirsAt       time.Time // Scheduled air time
	Network      string    // Broadcasting network
	LibraryID    string    // Library the series belongs to
	Downloaded   bool      // Whether a file already exists
}

// EpisodeCode returns the formatted episode code (e.g., "S01E05")
func (e ScheduleEntry) EpisodeCode() string {
	return fmt.Sprintf("S%02dE%02d", e.SeasonNum, e.EpisodeNum)
}

// AirsWithin reports whether the entry airs inside the window starting at now
func (e ScheduleEntry) AirsWithin(now time.Time, window time.Duration) bool {
	return !e.AirsAt.Before(now) && e.AirsAt.Before(now.Add(window))
}

// DownloadStatus represents the lifecycle state of a queue item
type DownloadStatus int

const (
	DownloadQueued DownloadStatus = iota
	DownloadActive
	DownloadImporting
	DownloadCompleted
	DownloadFailed
)

// String returns a human-readable representation of the download status
func (s DownloadStatus) String() string {
	switch s {
	case DownloadQueued:
		return "Queued"
	case DownloadActive:
		return "Downloading"
	case DownloadImporting:
		return "Importing"
	case DownloadCompleted:
		return "Completed"
	case DownloadFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Download represents an item in the server's download queue
type Download struct {
	ID       string         // Queue item identifier
	Title    string         // Release title
	Category string         // Library category ("series", "movie", ...)
	Protocol string         // "torrent" or "usenet"
	Status   DownloadStatus // Current lifecycle state
	Size     int64          // Total size in bytes
	SizeLeft int64          // Bytes remaining
	Client   string         // Download client handling the item
	ETA      time.Duration  // Estimated time remaining
	AddedAt  int64          // Unix timestamp when queued
}

// Progress returns download completion as a fraction between 0 and 1
func (d Download) Progress() float64 {
	if d.Size <= 0 {
		return 0
	}
	done := d.Size - d.SizeLeft
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(d.Size)
}

// FormattedSize returns the total size in a human-readable format
func (d Download) FormattedSize() string {
	if d.Size <= 0 {
		return ""
	}
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case d.Size >= gb:
		return fmt.Sprintf("%.1f GB", float64(d.Size)/float64(gb))
	default:
		return fmt.Sprintf("%d MB", d.Size/mb)
	}
}

// FormattedETA returns the remaining time in a human-readable format
func (d Download) FormattedETA() string {
	if d.ETA <= 0 {
		return ""
	}
	h := int(d.ETA.Hours())
	mins := int(d.ETA.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// User represents an authenticated server account
type User struct {
	ID       string // Server-assigned user identifier
	Username string // Display username
}

// SystemStatus describes the server build answering the API
type SystemStatus struct {
	AppName   string // Server application name
	Version   string // Server version string
	StartedAt int64  // Unix timestamp of server start
}

// SearchHit represents a single server-side search result
type SearchHit struct {
	ID        string // Matched item identifier
	Title     string // Display title
	Type      string // "series", "movie", "music", "audiobook"
	LibraryID string // Library the item belongs to
	Year      int    // Release year, if known
}
