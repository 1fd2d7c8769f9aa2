// Package fetcher defines the content-fetcher capability: resolving a URL
// into format metadata and performing the byte-level fetch while emitting
// progress events.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"instadl/internal/errs"
)

// ProgressStatus tags a progress event.
type ProgressStatus string

const (
	// ProgressDownloading indicates bytes are still being transferred.
	ProgressDownloading ProgressStatus = "downloading"
	// ProgressFinished indicates the stream finished; post-processing may
	// still be running and the output file may not be flushed yet.
	ProgressFinished ProgressStatus = "finished"
)

// Update is one progress event emitted during a fetch.
type Update struct {
	Status  ProgressStatus
	Percent float64
}

// ProgressFunc receives progress events. Implementations must be safe to
// call from the fetcher's goroutine.
type ProgressFunc func(Update)

// Directive tells the fetcher what to transfer.
type Directive struct {
	// Format is a yt-dlp format selector; ignored when ExtractAudio is set.
	Format string
	// ExtractAudio requests best-audio extraction with transcoding.
	ExtractAudio bool
}

// RawFormat is one format of the resolved URL, before any shaping.
type RawFormat struct {
	FormatID string
	Ext      string
	Filesize int64
	Width    int
	Height   int
	VCodec   string
	ACodec   string
}

// Info is the metadata of a resolved URL.
type Info struct {
	Title     string
	Duration  int
	Uploader  string
	Thumbnail string
	ViewCount int
	Formats   []RawFormat
}

// FetchResult reports where the fetcher wrote its output. The path may
// not be fully visible on disk yet when Fetch returns; the finalizer owns
// that race.
type FetchResult struct {
	TempPath  string
	Container string
	Title     string
}

// Fetcher resolves metadata and performs the actual byte transfer for a
// given URL and format directive.
type Fetcher interface {
	Resolve(ctx context.Context, url string) (*Info, error)
	Fetch(ctx context.Context, url string, directive Directive, onProgress ProgressFunc) (*FetchResult, error)
}

// Classify maps a raw fetcher error onto the stable taxonomy. The mapping
// follows the substrings yt-dlp reports for each failure class.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errs.ErrContentUnavailable, err)
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "you need to log in"), strings.Contains(msg, "cookies"):
		return fmt.Errorf("%w: %w", errs.ErrAuthenticationRequired, err)
	case strings.Contains(msg, "only available for registered users"), strings.Contains(msg, "private"):
		return fmt.Errorf("%w: %w", errs.ErrPrivateContent, err)
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "not found"), strings.Contains(msg, "404"):
		return fmt.Errorf("%w: %w", errs.ErrContentUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", errs.ErrExtraction, err)
	}
}
