package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not logged in")
	ErrLoginExpired     = fmt.Errorf("login challenge expired")
	ErrLoginFailed      = fmt.Errorf("login failed")
	ErrSessionExpired   = fmt.Errorf("session expired")

	// API and decode errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrDecode     = fmt.Errorf("malformed response")

	// Catalog and match errors
	ErrFetchInFlight = fmt.Errorf("catalog fetch already in flight")
	ErrSongNotFound  = fmt.Errorf("cloud song not found")
	ErrMatchRejected = fmt.Errorf("match rejected")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
