package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderUnavailable indicates the identity provider could not be reached.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrSessionExpired occurs when session revalidation against the provider fails.
	ErrSessionExpired = errors.New("session expired")
	// ErrPermissionDenied occurs when the acting role lacks a required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidStatus occurs when a status value is outside the request lifecycle enumeration.
	ErrInvalidStatus = errors.New("invalid request status")
	// ErrInvalidPage occurs when pagination input is out of range.
	ErrInvalidPage = errors.New("invalid page")
	// ErrPersistence is the single kind for all request repository failures.
	ErrPersistence = errors.New("persistence failed")
	// ErrMutationInFlight occurs when a session already has a mutating call in progress.
	ErrMutationInFlight = errors.New("another change is being saved")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// IsAuthentication reports whether err is any authentication failure:
// bad credentials, unreachable provider, or an expired session.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrSessionExpired)
}
