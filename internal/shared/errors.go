package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Lookup errors. Every specific case wraps ErrNotFound.
	ErrNotFound         = fmt.Errorf("not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", ErrNotFound)
	ErrTrackNotFound    = fmt.Errorf("track %w", ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("session %w", ErrNotFound)
	ErrNothingPlaying   = fmt.Errorf("nothing playing: %w", ErrNotFound)

	// Catalog errors
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrNoActiveDevice      = fmt.Errorf("no active device found: %w", ErrUpstreamUnavailable)

	// Storage errors
	ErrStorage = fmt.Errorf("storage failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
