// Package finalizer turns a fetcher-chosen temporary output into a stable,
// collision-free served file. The fetcher's completion signal can arrive
// before the file is fully visible on disk, so the move is a bounded
// retry loop rather than a single rename; this busy-wait stands in for a
// filesystem-level completion notification that is not reliably available
// across the supported platforms.
package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"instadl/internal/errs"
	"instadl/pkg/sanitize"
)

// Result reports the finalized artifact.
type Result struct {
	Filename string
	Path     string
	Size     int64
}

// Finalizer moves fetched files into the shared output directory.
type Finalizer struct {
	log       *slog.Logger
	outputDir string
	attempts  int
	interval  time.Duration

	// serializes name probing and the rename as one atomic section, so
	// two jobs finalizing the same title cannot both claim the same name
	mu sync.Mutex
}

// New creates a finalizer for outputDir with the given retry budget.
func New(log *slog.Logger, outputDir string, attempts int, interval time.Duration) *Finalizer {
	if attempts <= 0 {
		attempts = 1
	}

	return &Finalizer{
		log:       log.With(slog.String("package", "finalizer")),
		outputDir: outputDir,
		attempts:  attempts,
		interval:  interval,
	}
}

// Finalize renames tempPath into the output directory under a sanitized,
// collision-free name derived from title and ext. It retries within the
// configured budget while waiting for tempPath to become visible. The name
// is not chosen until the source exists and the rename is about to happen;
// choosing it earlier would let another job with the same title claim the
// name in between.
func (f *Finalizer) Finalize(ctx context.Context, tempPath, title, ext string) (*Result, error) {
	log := f.log.With(slog.String("temp_path", tempPath))

	safeTitle := sanitize.Filename(title)

	sourceSeen := false

	for attempt := 0; attempt < f.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("finalize canceled: %w", ctx.Err())
		default:
		}

		if _, err := os.Stat(tempPath); err == nil {
			sourceSeen = true

			filename, err := f.claimAndMove(tempPath, safeTitle, ext)
			if err != nil {
				log.WarnContext(ctx, "move failed, retrying",
					slog.Int("attempt", attempt+1),
					slog.Any("error", err))
			} else {
				return f.report(ctx, filename, filepath.Join(f.outputDir, filename))
			}
		}

		time.Sleep(f.interval)
	}

	if !sourceSeen {
		return nil, fmt.Errorf("%w: %s", errs.ErrFileNotFound, tempPath)
	}

	return nil, fmt.Errorf("%w: retries exhausted moving %s", errs.ErrFileProcessing, tempPath)
}

// claimAndMove picks the first unused name and renames source onto it
// inside one critical section. No other job can probe between the
// existence check and the rename, so two jobs with the same title always
// end up with distinct files.
func (f *Finalizer) claimAndMove(source, safeTitle, ext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filename := f.uniqueFilename(safeTitle, ext)
	dest := filepath.Join(f.outputDir, filename)

	err := os.Rename(source, dest)
	if err == nil {
		return filename, nil
	}

	// dest can only exist if something outside the process created it
	// after the probe; remove it and try once more before burning a
	// retry attempt
	if _, statErr := os.Stat(dest); statErr == nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			return "", fmt.Errorf("remove stale dest: %w", rmErr)
		}
	}

	if err := os.Rename(source, dest); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}

	return filename, nil
}

// uniqueFilename probes name.ext, name_1.ext, name_2.ext, ... until an
// unused name is found. Growth is bounded by the number of distinct titles
// seen in the directory. Callers must hold f.mu.
func (f *Finalizer) uniqueFilename(safeTitle, ext string) string {
	filename := safeTitle + "." + ext
	if _, err := os.Stat(filepath.Join(f.outputDir, filename)); os.IsNotExist(err) {
		return filename
	}

	for counter := 1; ; counter++ {
		filename = fmt.Sprintf("%s_%d.%s", safeTitle, counter, ext)
		if _, err := os.Stat(filepath.Join(f.outputDir, filename)); os.IsNotExist(err) {
			return filename
		}
	}
}

func (f *Finalizer) report(ctx context.Context, filename, finalPath string) (*Result, error) {
	fileInfo, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrFileProcessing, finalPath, err)
	}

	f.log.InfoContext(ctx, "file finalized",
		slog.String("filename", filename),
		slog.String("size", humanize.Bytes(uint64(fileInfo.Size()))))

	return &Result{
		Filename: filename,
		Path:     finalPath,
		Size:     fileInfo.Size(),
	}, nil
}
