package service

import "errors"

var (
	// ErrNotReady is returned by operations that need a bootstrapped console.
	ErrNotReady = errors.New("console is not ready")

	// ErrNoJobSelected is returned when a detail view is requested before a
	// job row was selected.
	ErrNoJobSelected = errors.New("no job selected")

	// ErrJobNotFound is returned when a job uuid is not in the backend listing.
	ErrJobNotFound = errors.New("job not found")

	// ErrForbidden is returned for admin actions by non-hakmaster sessions.
	ErrForbidden = errors.New("hakmaster role required")

	// ErrArchiveDisabled is returned when no artifact storage is configured.
	ErrArchiveDisabled = errors.New("artifact archive is not configured")

	// ErrArtifactTooLarge is returned when an artifact exceeds the archive
	// size limit.
	ErrArtifactTooLarge = errors.New("artifact exceeds archive size limit")
)
