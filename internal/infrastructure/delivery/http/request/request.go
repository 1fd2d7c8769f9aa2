// Package request defines the HTTP request DTOs and their validation.
package request

import (
	"instadl/internal/entity"
	"instadl/internal/errs"
	"instadl/pkg/urls"
)

// Extract is the body of POST /v1/extract.
type Extract struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Validate checks the extract request.
func (e *Extract) Validate() error {
	if !urls.IsURLValid(urls.Normalize(e.URL)) {
		return errs.ErrInvalidURL
	}

	return nil
}

// NormalizedURL returns the cleaned-up URL.
func (e *Extract) NormalizedURL() string {
	return urls.Normalize(e.URL)
}

// DetectedContentType resolves the effective content type, deriving it
// from the URL when the client did not supply one.
func (e *Extract) DetectedContentType() entity.ContentType {
	if e.ContentType != "" {
		return entity.ContentType(e.ContentType)
	}

	return entity.DetectContentType(e.NormalizedURL())
}

// Download is the body of POST /v1/download.
type Download struct {
	SessionID string `json:"session_id"`
	FormatID  string `json:"format_id,omitempty"`
}

// Validate checks the download request.
func (d *Download) Validate() error {
	if d.SessionID == "" {
		return errs.ErrSessionIDEmpty
	}

	return nil
}
