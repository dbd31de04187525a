package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the Librarian server is unreachable
	ErrServerOffline = errors.New("librarian server is unreachable")

	// ErrAuthFailed indicates the API key or credentials were rejected
	ErrAuthFailed = errors.New("authentication failed")

	// ErrLibraryNotFound indicates the requested library does not exist
	ErrLibraryNotFound = errors.New("library not found")
)
