// Package orchestrator drives download jobs from creation to a terminal
// state: it creates registry records, schedules fetch work onto the worker
// pool, relays progress into the registry, and hands completed fetches to
// the finalizer.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"instadl/internal/config"
	"instadl/internal/consts"
	"instadl/internal/entity"
	"instadl/internal/errs"
	"instadl/internal/fetcher"
	"instadl/internal/finalizer"
	"instadl/internal/observability"
	"instadl/internal/registry"
	"instadl/internal/sessions"
	"instadl/pkg/calc"
	"instadl/pkg/pool"
	"instadl/pkg/ptr"
)

const (
	// progressStarted is set when a worker picks the job up.
	progressStarted = 5
	// progressCeiling caps fetcher-reported progress; 95..100 is reserved
	// for finalization so progress never appears complete before the file
	// is actually ready.
	progressCeiling = 95
	progressDone    = 100

	maxVideoFormats = 3
)

// Orchestrator is the asynchronous job core.
type Orchestrator struct {
	log       *slog.Logger
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	sessions  *sessions.Cache
	registry  *registry.Registry
	pool      *pool.Pool
	finalizer *finalizer.Finalizer
	metrics   *observability.Metrics
}

// New wires the orchestrator. metrics may be nil in tests.
func New(
	cfg *config.Config,
	log *slog.Logger,
	f fetcher.Fetcher,
	sessionCache *sessions.Cache,
	reg *registry.Registry,
	workers *pool.Pool,
	fin *finalizer.Finalizer,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		log:       log.With(slog.String("package", "orchestrator")),
		cfg:       cfg,
		fetcher:   f,
		sessions:  sessionCache,
		registry:  reg,
		pool:      workers,
		finalizer: fin,
		metrics:   metrics,
	}
}

// Resolve extracts metadata for a URL and caches it as a session. Stories
// are rejected deterministically before any I/O.
func (o *Orchestrator) Resolve(ctx context.Context, url string, contentType entity.ContentType) (string, entity.Session, error) {
	log := o.log.With(slog.String("func", "Resolve"))

	if contentType == "" || contentType == entity.ContentTypeUnknown {
		contentType = entity.DetectContentType(url)
	}

	if contentType == entity.ContentTypeStory {
		return "", entity.Session{}, errs.ErrUnsupportedContent
	}

	info, err := o.fetcher.Resolve(ctx, url)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordFetcherError(errs.Kind(err))
		}

		return "", entity.Session{}, fmt.Errorf("resolve %q: %w", url, err)
	}

	session := entity.Session{
		URL:         url,
		ContentType: contentType,
		Info: entity.ResolvedInfo{
			Title:     info.Title,
			Duration:  info.Duration,
			Uploader:  info.Uploader,
			Thumbnail: info.Thumbnail,
			ViewCount: info.ViewCount,
			Formats:   shapeFormats(info.Formats),
		},
	}

	sessionID := o.sessions.Put(ctx, session)

	if o.metrics != nil {
		o.metrics.RecordSessionCreated()
		o.metrics.SetStoredSessions(o.sessions.Len(ctx))
	}

	log.InfoContext(ctx, "session created", slog.String("session_id", sessionID), "session", session)

	return sessionID, session, nil
}

// Enqueue creates a job for a previously resolved session and schedules it
// onto the worker pool. It returns as soon as the record exists; it never
// waits on the fetch.
func (o *Orchestrator) Enqueue(ctx context.Context, sessionID, formatID string) (string, error) {
	log := o.log.With(slog.String("func", "Enqueue"))

	if sessionID == "" {
		return "", errs.ErrSessionIDEmpty
	}

	session, ok := o.sessions.Get(ctx, sessionID)
	if !ok {
		return "", errs.ErrInvalidSession
	}

	// pre-flight rejection: no job record, no worker
	if session.ContentType == entity.ContentTypeStory {
		return "", errs.ErrUnsupportedContent
	}

	jobID := o.registry.Create(ctx, entity.Job{
		FormatID:    formatID,
		ContentType: session.ContentType,
		Title:       session.Info.Title,
	})

	if o.metrics != nil {
		o.metrics.RecordJobCreated()
		o.metrics.SetStoredJobs(o.registry.Len(ctx))
	}

	url := session.URL
	title := session.Info.Title
	contentType := session.ContentType

	o.pool.Submit(func() {
		o.runJob(url, formatID, jobID, title, contentType)
	})

	log.InfoContext(ctx, "job enqueued",
		slog.String("job_id", jobID),
		slog.String("session_id", sessionID),
		slog.String("format_id", formatID))

	return jobID, nil
}

// SnapshotStatus returns an immutable copy of the job record.
func (o *Orchestrator) SnapshotStatus(ctx context.Context, jobID string) (entity.Job, bool) {
	return o.registry.Snapshot(ctx, jobID)
}

// runJob executes inside a worker and owns every registry write for its
// job. Faults never escape: any error or panic ends as a failed record.
func (o *Orchestrator) runJob(url, formatID, jobID, title string, contentType entity.ContentType) {
	// jobs run to a terminal state regardless of caller lifetime; there is
	// no cancellation of in-flight jobs
	ctx := context.Background()

	log := o.log.With(slog.String("func", "runJob"), slog.String("job_id", jobID))

	var timer func()
	if o.metrics != nil {
		timer = o.metrics.JobTimer()
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			log.ErrorContext(ctx, "job panicked", slog.Any("panic", rvr))
			o.failJob(ctx, jobID, fmt.Errorf("download failed: %v", rvr))
		}

		if timer != nil {
			timer()
		}
	}()

	// defense against direct invocation bypassing Enqueue
	if contentType == entity.ContentTypeStory {
		o.failJob(ctx, jobID, errs.ErrUnsupportedContent)

		return
	}

	o.registry.Update(ctx, jobID, registry.Patch{
		Status:   ptr.Of(entity.JobStatusDownloading),
		Progress: ptr.Of(progressStarted),
	})

	directive := buildDirective(formatID)

	res, err := o.fetcher.Fetch(ctx, url, directive, func(update fetcher.Update) {
		o.onProgress(ctx, jobID, update)
	})
	if err != nil {
		log.ErrorContext(ctx, "fetch failed", slog.Any("error", err))
		o.failJob(ctx, jobID, err)

		return
	}

	if res.Title != "" {
		title = res.Title
	}

	ext := res.Container
	if directive.ExtractAudio {
		ext = consts.AudioCodec
	}

	final, err := o.finalizer.Finalize(ctx, res.TempPath, title, ext)
	if err != nil {
		log.ErrorContext(ctx, "finalize failed", slog.Any("error", err))
		o.failJob(ctx, jobID, err)

		return
	}

	o.registry.Update(ctx, jobID, registry.Patch{
		Status:   ptr.Of(entity.JobStatusCompleted),
		Progress: ptr.Of(progressDone),
		Result: &entity.Result{
			Filename:    final.Filename,
			Path:        final.Path,
			Size:        final.Size,
			DownloadURL: consts.VideoRoute + final.Filename,
		},
	})

	if o.metrics != nil {
		o.metrics.RecordJobCompleted()
		o.metrics.AddDownloadBytes(final.Size)
	}

	log.InfoContext(ctx, "job completed",
		slog.String("filename", final.Filename),
		slog.String("size", humanize.Bytes(uint64(final.Size))))
}

// onProgress maps fetcher progress events into registry updates. This
// direct write-under-lock is the only allowed progress path; last write
// wins since only recency matters.
func (o *Orchestrator) onProgress(ctx context.Context, jobID string, update fetcher.Update) {
	if update.Status == fetcher.ProgressFinished {
		// stream finished; finalization still pending
		o.registry.Update(ctx, jobID, registry.Patch{
			Status:   ptr.Of(entity.JobStatusProcessing),
			Progress: ptr.Of(progressCeiling),
		})

		return
	}

	progress := calc.Clamp(int(update.Percent), 0, progressCeiling)

	o.registry.Update(ctx, jobID, registry.Patch{
		Progress: ptr.Of(progress),
	})
}

func (o *Orchestrator) failJob(ctx context.Context, jobID string, err error) {
	o.registry.Update(ctx, jobID, registry.Patch{
		Status: ptr.Of(entity.JobStatusFailed),
		Error:  ptr.Of(err.Error()),
	})

	if o.metrics != nil {
		o.metrics.RecordJobFailed(errs.Kind(err))
	}
}

// buildDirective maps the caller-requested selector onto a fetch directive.
func buildDirective(formatID string) fetcher.Directive {
	switch formatID {
	case consts.FormatAudioOnly:
		return fetcher.Directive{ExtractAudio: true}
	case "", consts.FormatBest:
		return fetcher.Directive{Format: consts.QualityLadder}
	default:
		return fetcher.Directive{Format: formatID}
	}
}

// shapeFormats turns the raw format list into the options offered to the
// client: up to three distinct video heights, best first, plus the
// audio-only entry; a bare best-available fallback when nothing matched.
func shapeFormats(raw []fetcher.RawFormat) []entity.FormatOption {
	video := make([]fetcher.RawFormat, 0, len(raw))

	for _, f := range raw {
		if f.VCodec != "" && f.VCodec != "none" &&
			f.ACodec != "" && f.ACodec != "none" &&
			f.Height > 0 && f.Width > 0 {
			video = append(video, f)
		}
	}

	sort.Slice(video, func(i, j int) bool {
		return video[i].Height*video[i].Width > video[j].Height*video[j].Width
	})

	formats := make([]entity.FormatOption, 0, maxVideoFormats+1)
	seenHeights := make(map[int]bool)

	for _, f := range video {
		if seenHeights[f.Height] || len(formats) >= maxVideoFormats {
			continue
		}

		seenHeights[f.Height] = true

		formats = append(formats, entity.FormatOption{
			FormatID: f.FormatID,
			Ext:      orDefault(f.Ext, "mp4"),
			Quality:  qualityLabel(f.Height),
			Filesize: f.Filesize,
			Width:    f.Width,
			Height:   f.Height,
			Type:     "video",
		})
	}

	if len(formats) == 0 {
		formats = append(formats, entity.FormatOption{
			FormatID: consts.FormatBest,
			Ext:      "mp4",
			Quality:  "Best Available Quality",
			Type:     "video",
		})
	}

	formats = append(formats, entity.FormatOption{
		FormatID: consts.FormatAudioOnly,
		Ext:      consts.AudioCodec,
		Quality:  "Audio Only (MP3)",
		Type:     "audio",
	})

	return formats
}

func qualityLabel(height int) string {
	switch {
	case height >= 1080:
		return fmt.Sprintf("High Quality (%dp)", height)
	case height >= 720:
		return fmt.Sprintf("HD (%dp)", height)
	default:
		return fmt.Sprintf("Standard (%dp)", height)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
