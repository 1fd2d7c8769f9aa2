package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"instadl/internal/consts"
	"instadl/pkg/gen"
)

// Mock is a scripted fetcher for tests. It emits a fixed progress ramp and
// writes a real file to TempDir so the finalize path is exercised end to
// end. Zero value fields fall back to usable defaults.
type Mock struct {
	log *slog.Logger

	// TempDir is where Fetch writes its output file.
	TempDir string
	// Title overrides the resolved/fetched title.
	Title string
	// Container is the reported container extension.
	Container string
	// Payload is the file content Fetch writes.
	Payload []byte
	// StepDelay spaces the progress events; zero means no delay.
	StepDelay time.Duration

	// ResolveErr makes Resolve fail.
	ResolveErr error
	// FetchErr makes Fetch fail after the progress ramp.
	FetchErr error
	// SkipWrite suppresses the output file, simulating a fetch whose
	// reported path never appears on disk.
	SkipWrite bool
}

var _ Fetcher = (*Mock)(nil)

// NewMock creates a mock fetcher writing into tempDir.
func NewMock(log *slog.Logger, tempDir string) *Mock {
	return &Mock{
		log:       log.With(slog.String("package", "fetcher"), slog.String("fetcher", consts.FetcherMock)),
		TempDir:   tempDir,
		Title:     "Test Content",
		Container: "mp4",
		Payload:   []byte("test payload"),
	}
}

// Resolve returns scripted metadata.
func (m *Mock) Resolve(_ context.Context, _ string) (*Info, error) {
	if m.ResolveErr != nil {
		return nil, Classify(m.ResolveErr)
	}

	return &Info{
		Title:     m.Title,
		Duration:  42,
		Uploader:  "tester",
		Thumbnail: "https://example.com/thumb.jpg",
		ViewCount: 7,
		Formats: []RawFormat{
			{FormatID: "137", Ext: "mp4", Width: 1920, Height: 1080, VCodec: "avc1", ACodec: "mp4a"},
			{FormatID: "136", Ext: "mp4", Width: 1280, Height: 720, VCodec: "avc1", ACodec: "mp4a"},
			{FormatID: "135", Ext: "mp4", Width: 854, Height: 480, VCodec: "avc1", ACodec: "mp4a"},
		},
	}, nil
}

// Fetch emits a progress ramp, optionally writes the payload file, and
// reports the temp path the way a real backend would.
func (m *Mock) Fetch(ctx context.Context, _ string, directive Directive, onProgress ProgressFunc) (*FetchResult, error) {
	for _, percent := range []float64{10, 40, 70, 100} {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if m.StepDelay > 0 {
			time.Sleep(m.StepDelay)
		}

		if onProgress != nil {
			onProgress(Update{Status: ProgressDownloading, Percent: percent})
		}
	}

	if onProgress != nil {
		onProgress(Update{Status: ProgressFinished, Percent: 100})
	}

	if m.FetchErr != nil {
		return nil, Classify(m.FetchErr)
	}

	container := m.Container
	if directive.ExtractAudio {
		container = consts.AudioCodec
	}

	tempPath := filepath.Join(m.TempDir, gen.ShortID()+"_"+m.Title+"."+container)

	if !m.SkipWrite {
		if err := os.WriteFile(tempPath, m.Payload, 0o644); err != nil {
			return nil, fmt.Errorf("write mock output: %w", err)
		}
	}

	return &FetchResult{
		TempPath:  tempPath,
		Container: container,
		Title:     m.Title,
	}, nil
}
