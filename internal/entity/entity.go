// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"strings"
	"time"
)

// ContentType represents the category of the requested content.
type ContentType string

// Known content categories.
const (
	ContentTypePost    ContentType = "post"
	ContentTypeReel    ContentType = "reel"
	ContentTypeIGTV    ContentType = "igtv"
	ContentTypeStory   ContentType = "story"
	ContentTypeUnknown ContentType = "unknown"
)

// DetectContentType derives the content category from the URL path.
// Stories are detected first because they are permanently unsupported
// and must short-circuit every downstream flow.
func DetectContentType(url string) ContentType {
	switch {
	case strings.Contains(url, "/stories/"):
		return ContentTypeStory
	case strings.Contains(url, "/reels/"), strings.Contains(url, "/reel/"):
		return ContentTypeReel
	case strings.Contains(url, "/p/"):
		return ContentTypePost
	case strings.Contains(url, "/tv/"):
		return ContentTypeIGTV
	default:
		return ContentTypeUnknown
	}
}

// JobStatus represents the status of a download job.
type JobStatus string

const (
	// JobStatusQueued indicates that the job is accepted and waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusDownloading indicates that the fetch is in progress.
	JobStatusDownloading JobStatus = "downloading"
	// JobStatusProcessing indicates that the fetch finished and the file is being finalized.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates that the job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates that the job reached a terminal error.
	JobStatusFailed JobStatus = "failed"
)

// statusRank orders statuses along the only legal transition path:
// queued -> downloading -> processing -> {completed|failed}.
var statusRank = map[JobStatus]int{
	JobStatusQueued:      0,
	JobStatusDownloading: 1,
	JobStatusProcessing:  2,
	JobStatusCompleted:   3,
	JobStatusFailed:      3,
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Before reports whether s precedes other in the transition order.
func (s JobStatus) Before(other JobStatus) bool {
	return statusRank[s] < statusRank[other]
}

// FormatOption is one selectable download format of a resolved URL.
type FormatOption struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	Quality  string `json:"quality"`
	Filesize int64  `json:"filesize,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Type     string `json:"type"` // "video" or "audio"
}

// ResolvedInfo holds the metadata produced by a successful resolution.
type ResolvedInfo struct {
	Title     string         `json:"title"`
	Duration  int            `json:"duration,omitempty"`
	Uploader  string         `json:"uploader,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	ViewCount int            `json:"view_count,omitempty"`
	Formats   []FormatOption `json:"formats"`
}

// Session is a cached resolution result keyed by an opaque id.
// Read-only after creation; never deleted within the process lifetime.
type Session struct {
	URL         string       `json:"url"`
	ContentType ContentType  `json:"content_type"`
	Info        ResolvedInfo `json:"info"`
}

// Result describes the served artifact of a completed job.
type Result struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// Job represents one download attempt, tracked from queued to a terminal state.
// Error and Result are mutually exclusive; each is set exactly once, exactly
// when the corresponding terminal state is entered.
type Job struct {
	ID          string      `json:"job_id"`
	Status      JobStatus   `json:"status"`
	Progress    int         `json:"progress"`
	FormatID    string      `json:"format_id,omitempty"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      *Result     `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out past the registry's lock.
func (j Job) Clone() Job {
	if j.Result != nil {
		res := *j.Result
		j.Result = &res
	}

	return j
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (j Job) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job_id", j.ID),
		slog.String("status", string(j.Status)),
		slog.Int("progress", j.Progress),
		slog.String("format_id", j.FormatID),
		slog.String("content_type", string(j.ContentType)),
		slog.String("error", j.Error),
	)
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", s.URL),
		slog.String("content_type", string(s.ContentType)),
		slog.String("title", s.Info.Title),
		slog.Int("formats", len(s.Info.Formats)),
	)
}
