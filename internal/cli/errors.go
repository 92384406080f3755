// Package cli implements the command-line interface.
package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Site errors
	ErrSiteNotFound     = "SITE_NOT_FOUND"
	ErrSiteNotSpecified = "SITE_NOT_SPECIFIED"
	ErrConfigInvalid    = "CONFIG_INVALID"

	// Draft errors
	ErrDraftNotFound = "DRAFT_NOT_FOUND"

	// Annotation errors
	ErrAnnotationNotFound = "ANNOTATION_NOT_FOUND"

	// Validation errors
	ErrValidationFailed = "VALIDATION_FAILED"
	ErrInvalidValue     = "INVALID_VALUE"

	// Database errors
	ErrDatabaseError   = "DATABASE_ERROR"
	ErrDatabaseVersion = "DATABASE_VERSION_MISMATCH"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// Daemon errors
	ErrSocketError = "SOCKET_ERROR"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnAnchorNotFound    = "ANCHOR_NOT_FOUND"
	WarnActiveSiteMissing = "ACTIVE_SITE_MISSING"
	WarnDraftNotFound     = "DRAFT_NOT_FOUND"
)
