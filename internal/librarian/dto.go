package librarian

import (
	"strings"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
)

// Wire types mirroring the JSON shapes the GraphQL API returns

type libraryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	ItemCount int    `json:"itemCount"`
	UpdatedAt int64  `json:"updatedAt"`
}

type seriesDTO struct {
	ID              string `json:"id"`
	LibraryID       string `json:"libraryId"`
	Title           string `json:"title"`
	SortTitle       string `json:"sortTitle"`
	Year            int    `json:"year"`
	Network         string `json:"network"`
	Status          string `json:"status"`
	EpisodeCount    int    `json:"episodeCount"`
	DownloadedCount int    `json:"downloadedCount"`
	AddedAt         int64  `json:"addedAt"`
}

type scheduleEntryDTO struct {
	SeriesID      string    `json:"seriesId"`
	SeriesTitle   string    `json:"seriesTitle"`
	EpisodeTitle  string    `json:"episodeTitle"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	AirsAt        time.Time `json:"airsAt"`
	Network       string    `json:"network"`
	LibraryID     string    `json:"libraryId"`
	Downloaded    bool      `json:"downloaded"`
}

type downloadDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Protocol   string `json:"protocol"`
	Status     string `json:"status"`
	Size       int64  `json:"size"`
	SizeLeft   int64  `json:"sizeLeft"`
	Client     string `json:"client"`
	EtaSeconds int64  `json:"etaSeconds"`
	AddedAt    int64  `json:"addedAt"`
}

type searchHitDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	LibraryID string `json:"libraryId"`
	Year      int    `json:"year"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type systemStatusDTO struct {
	AppName   string `json:"appName"`
	Version   string `json:"version"`
	StartedAt int64  `json:"startedAt"`
}

func mapLibraries(dtos []libraryDTO) []domain.Library {
	libs := make([]domain.Library, 0, len(dtos))
	for _, d := range dtos {
		libs = append(libs, domain.Library{
			ID:        d.ID,
			Name:      d.Name,
			Type:      domain.LibraryType(strings.ToLower(d.Type)),
			Path:      d.Path,
			ItemCount: d.ItemCount,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return libs
}

func mapSeriesList(dtos []seriesDTO) []domain.Series {
	series := make([]domain.Series, 0, len(dtos))
	for _, d := range dtos {
		series = append(series, domain.Series{
			ID:              d.ID,
			LibraryID:       d.LibraryID,
			Title:           d.Title,
			SortTitle:       d.SortTitle,
			Year:            d.Year,
			Network:         d.Network,
			Status:          strings.ToLower(d.Status),
			EpisodeCount:    d.EpisodeCount,
			DownloadedCount: d.DownloadedCount,
			AddedAt:         d.AddedAt,
		})
	}
	return series
}

func mapScheduleEntries(dtos []scheduleEntryDTO) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0, len(dtos))
	for _, d := range dtos {
		entries = append(entries, domain.ScheduleEntry{
			SeriesID:     d.SeriesID,
			SeriesTitle:  d.SeriesTitle,
			EpisodeTitle: d.EpisodeTitle,
			SeasonNum:    d.SeasonNumber,
			EpisodeNum:   d.EpisodeNumber,
			AirsAt:       d.AirsAt,
			Network:      d.Network,
			LibraryID:    d.LibraryID,
			Downloaded:   d.Downloaded,
		})
	}
	return entries
}

func mapDownloads(dtos []downloadDTO) []domain.Download {
	downloads := make([]domain.Download, 0, len(dtos))
	for _, d := range dtos {
		downloads = append(downloads, domain.Download{
			ID:       d.ID,
			Title:    d.Title,
			Category: d.Category,
			Protocol: d.Protocol,
			Status:   parseDownloadStatus(d.Status),
			Size:     d.Size,
			SizeLeft: d.SizeLeft,
			Client:   d.Client,
			ETA:      time.Duration(d.EtaSeconds) * time.Second,
			AddedAt:  d.AddedAt,
		})
	}
	return downloads
}

func parseDownloadStatus(s string) domain.DownloadStatus {
	switch strings.ToLower(s) {
	case "queued":
		return domain.DownloadQueued
	case "downloading":
		return domain.DownloadActive
	case "importing":
		return domain.DownloadImporting
	case "completed":
		return domain.DownloadCompleted
	case "failed":
		return domain.DownloadFailed
	default:
		return domain.DownloadQueued
	}
}

func mapSearchHits(dtos []searchHitDTO) []domain.SearchHit {
	hits := make([]domain.SearchHit, 0, len(dtos))
	for _, d := range dtos {
		hits = append(hits, domain.SearchHit{
			ID:        d.ID,
			Title:     d.Title,
			Type:      strings.ToLower(d.Type),
			LibraryID: d.LibraryID,
			Year:      d.Year,
		})
	}
	return hits
}

func mapUser(d userDTO) domain.User {
	return domain.User{ID: d.ID, Username: d.Username}
}

func mapSystemStatus(d systemStatusDTO) domain.SystemStatus {
	return domain.SystemStatus{
		AppName:   d.AppName,
		Version:   d.Version,
		StartedAt: d.StartedAt,
	}
}
