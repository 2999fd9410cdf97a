package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrAuthTimeout  = fmt.Errorf("authentication timed out")
	ErrAuthPending  = fmt.Errorf("authentication still pending")
	ErrTokenExpired = fmt.Errorf("access token expired")

	// Session lifecycle errors
	ErrInvalidPhase   = fmt.Errorf("invalid phase transition")
	ErrUnknownSession = fmt.Errorf("unknown session")
	ErrUnknownTrack   = fmt.Errorf("unknown track")
	ErrSamePlatform   = fmt.Errorf("source and target platform must differ")

	// Collaborator and service errors
	ErrCollaborator       = fmt.Errorf("collaborator request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// IsCredentialError reports whether err stems from missing, invalid, or
// expired credentials, as opposed to a transient collaborator failure.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired)
}
