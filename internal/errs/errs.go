// Package errs defines common error variables used across the application.
package errs

import "errors"

// Enqueue and session errors.
var (
	// ErrInvalidSession indicates that the session identifier is unknown.
	ErrInvalidSession = errors.New("invalid session")
	// ErrUnsupportedContent indicates that the content category is permanently excluded.
	ErrUnsupportedContent = errors.New("story downloads are not supported")
	// ErrSessionIDEmpty indicates that the session_id field is empty.
	ErrSessionIDEmpty = errors.New("session_id is empty")
)

// Valid request errors.
var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
)

// ErrJobIDEmpty indicates that the job ID is empty.
var ErrJobIDEmpty = errors.New("job_id is empty")

// Fetcher-classified resolution failures.
var (
	// ErrAuthenticationRequired indicates that the content requires authentication.
	ErrAuthenticationRequired = errors.New("this content requires authentication")
	// ErrPrivateContent indicates that the content is private.
	ErrPrivateContent = errors.New("this content is private")
	// ErrContentUnavailable indicates that the content is unavailable.
	ErrContentUnavailable = errors.New("content is unavailable")
	// ErrExtraction indicates a generic extraction failure.
	ErrExtraction = errors.New("extraction error")
)

// Finalizer errors.
var (
	// ErrFileProcessing indicates that the finalize retry budget was exhausted.
	ErrFileProcessing = errors.New("file processing error")
	// ErrFileNotFound indicates that the downloaded file never appeared on disk.
	ErrFileNotFound = errors.New("file not found after download")
)

// API error kind tags, surfaced as error_type in responses and job records.
const (
	KindInvalidSession         = "invalid_session"
	KindJobNotFound            = "job_not_found"
	KindStoryNotSupported      = "story_not_supported"
	KindAuthenticationRequired = "authentication_required"
	KindPrivateContent         = "private_content"
	KindContentUnavailable     = "content_unavailable"
	KindExtraction             = "extraction_error"
	KindFileProcessing         = "file_processing_error"
	KindFileNotFound           = "file_not_found"
	KindUnexpected             = "unexpected_error"
)

// Kind maps an error to its stable taxonomy tag. Unknown errors fall back
// to the catch-all so diagnostics always carry some category.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrSessionIDEmpty):
		return KindInvalidSession
	case errors.Is(err, ErrUnsupportedContent):
		return KindStoryNotSupported
	case errors.Is(err, ErrAuthenticationRequired):
		return KindAuthenticationRequired
	case errors.Is(err, ErrPrivateContent):
		return KindPrivateContent
	case errors.Is(err, ErrContentUnavailable):
		return KindContentUnavailable
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrFileProcessing):
		return KindFileProcessing
	case errors.Is(err, ErrFileNotFound):
		return KindFileNotFound
	default:
		return KindUnexpected
	}
}
