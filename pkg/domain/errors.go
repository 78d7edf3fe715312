package domain

import "errors"

// Session resolution errors
var (
	// ErrProfileMissing is returned when an authenticated identity has no
	// profile document (or a malformed one). Fatal to the session: the
	// resolver yields a nil session rather than a role-less one.
	ErrProfileMissing = errors.New("no profile document for identity")

	// ErrProfileOrphaned marks an authenticated client whose affiliation
	// matches no tenant record. Not retried automatically.
	ErrProfileOrphaned = errors.New("client profile has no backing tenant")

	ErrInvalidCredential = errors.New("invalid credentials")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

// Document store errors
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrMalformedDocument  = errors.New("document is missing required fields")
	ErrSubscriptionClosed = errors.New("subscription closed")
)
