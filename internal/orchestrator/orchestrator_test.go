package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instadl/internal/config"
	"instadl/internal/consts"
	"instadl/internal/entity"
	"instadl/internal/errs"
	"instadl/internal/fetcher"
	"instadl/internal/finalizer"
	"instadl/internal/registry"
	"instadl/internal/sessions"
	"instadl/pkg/pool"
)

type harness struct {
	orch      *Orchestrator
	sessions  *sessions.Cache
	registry  *registry.Registry
	pool      *pool.Pool
	outputDir string
}

func newHarness(t *testing.T, f fetcher.Fetcher, workers int) *harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	outputDir := t.TempDir()

	sessionCache := sessions.New(log)
	reg := registry.New(log)
	workerPool := pool.New(workers)
	t.Cleanup(workerPool.Stop)

	fin := finalizer.New(log, outputDir, 5, time.Millisecond)

	orch := New(&config.Config{}, log, f, sessionCache, reg, workerPool, fin, nil)

	return &harness{
		orch:      orch,
		sessions:  sessionCache,
		registry:  reg,
		pool:      workerPool,
		outputDir: outputDir,
	}
}

func newMockHarness(t *testing.T) (*harness, *fetcher.Mock) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mock := fetcher.NewMock(log, t.TempDir())

	return newHarness(t, mock, 2), mock
}

// waitTerminal polls the registry until the job reaches a terminal state.
func waitTerminal(t *testing.T, h *harness, jobID string) entity.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		job, ok := h.orch.SnapshotStatus(t.Context(), jobID)
		require.True(t, ok)

		if job.Status.Terminal() {
			return job
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("job %s never reached a terminal state", jobID)

	return entity.Job{}
}

func TestResolveCreatesSession(t *testing.T) {
	h, _ := newMockHarness(t)

	sessionID, session, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/reel/abc/", "")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	assert.Equal(t, entity.ContentTypeReel, session.ContentType)
	assert.Equal(t, "Test Content", session.Info.Title)

	// three scripted video formats plus the audio entry
	require.Len(t, session.Info.Formats, 4)
	assert.Equal(t, "137", session.Info.Formats[0].FormatID)
	assert.Equal(t, "High Quality (1080p)", session.Info.Formats[0].Quality)
	assert.Equal(t, consts.FormatAudioOnly, session.Info.Formats[3].FormatID)

	cached, ok := h.sessions.Get(t.Context(), sessionID)
	require.True(t, ok)
	assert.Equal(t, session.URL, cached.URL)
}

func TestResolveRejectsStories(t *testing.T) {
	h, _ := newMockHarness(t)

	_, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/stories/user/123/", "")
	require.ErrorIs(t, err, errs.ErrUnsupportedContent)

	assert.Equal(t, 0, h.sessions.Len(t.Context()))
}

func TestResolveClassifiesFetcherError(t *testing.T) {
	h, mock := newMockHarness(t)
	mock.ResolveErr = errors.New("ERROR: you need to log in to access this content")

	_, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/p/abc/", "")
	require.ErrorIs(t, err, errs.ErrAuthenticationRequired)
}

func TestEnqueueValidation(t *testing.T) {
	h, _ := newMockHarness(t)

	_, err := h.orch.Enqueue(t.Context(), "", "best")
	assert.ErrorIs(t, err, errs.ErrSessionIDEmpty)

	_, err = h.orch.Enqueue(t.Context(), "no-such-session", "best")
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	assert.Equal(t, 0, h.registry.Len(t.Context()))
}

func TestEnqueueRejectsStorySession(t *testing.T) {
	h, _ := newMockHarness(t)

	// a story session planted directly, bypassing Resolve's guard
	sessionID := h.sessions.Put(t.Context(), entity.Session{
		URL:         "https://www.instagram.com/stories/user/123/",
		ContentType: entity.ContentTypeStory,
	})

	_, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.ErrorIs(t, err, errs.ErrUnsupportedContent)

	// rejected before any record was created
	assert.Equal(t, 0, h.registry.Len(t.Context()))
}

func TestJobRunsToCompletion(t *testing.T) {
	h, mock := newMockHarness(t)
	mock.Payload = []byte("downloaded bytes")

	sessionID, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/reel/abc/", "")
	require.NoError(t, err)

	jobID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)

	job := waitTerminal(t, h, jobID)

	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Empty(t, job.Error)

	require.NotNil(t, job.Result)
	assert.Equal(t, "Test Content.mp4", job.Result.Filename)
	assert.Equal(t, consts.VideoRoute+"Test Content.mp4", job.Result.DownloadURL)
	assert.Equal(t, int64(len("downloaded bytes")), job.Result.Size)

	got, err := os.ReadFile(filepath.Join(h.outputDir, job.Result.Filename))
	require.NoError(t, err)
	assert.Equal(t, "downloaded bytes", string(got))
}

func TestAudioOnlyJobProducesMP3(t *testing.T) {
	h, _ := newMockHarness(t)

	sessionID, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/reel/abc/", "")
	require.NoError(t, err)

	jobID, err := h.orch.Enqueue(t.Context(), sessionID, consts.FormatAudioOnly)
	require.NoError(t, err)

	job := waitTerminal(t, h, jobID)

	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.True(t, strings.HasSuffix(job.Result.Filename, ".mp3"), "got %s", job.Result.Filename)
}

func TestJobFailsOnFetchError(t *testing.T) {
	h, mock := newMockHarness(t)
	mock.FetchErr = errors.New("ERROR: this video is only available for registered users")

	sessionID, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/p/abc/", "")
	require.NoError(t, err)

	jobID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)

	job := waitTerminal(t, h, jobID)

	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Nil(t, job.Result)
}

func TestJobFailsWhenOutputNeverAppears(t *testing.T) {
	h, mock := newMockHarness(t)
	mock.SkipWrite = true

	sessionID, _, err := h.orch.Resolve(t.Context(), "https://www.instagram.com/p/abc/", "")
	require.NoError(t, err)

	jobID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)

	job := waitTerminal(t, h, jobID)

	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "file not found")
}

// stallFetcher blocks Fetch until released, so tests can observe jobs
// mid-flight and after specific progress events.
type stallFetcher struct {
	entered chan struct{}
	release chan struct{}

	updates []fetcher.Update
	emitted chan struct{}
	resume  chan struct{}
}

func (s *stallFetcher) Resolve(context.Context, string) (*fetcher.Info, error) {
	return &fetcher.Info{Title: "stalled"}, nil
}

func (s *stallFetcher) Fetch(_ context.Context, _ string, _ fetcher.Directive, onProgress fetcher.ProgressFunc) (*fetcher.FetchResult, error) {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}

	for _, u := range s.updates {
		onProgress(u)
		s.emitted <- struct{}{}
		<-s.resume
	}

	if s.release != nil {
		<-s.release
	}

	return nil, errors.New("stalled fetch aborted")
}

func TestEnqueueNeverBlocksOnBusyPool(t *testing.T) {
	sf := &stallFetcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	h := newHarness(t, sf, 1)

	sessionID := h.sessions.Put(t.Context(), entity.Session{
		URL:         "https://www.instagram.com/p/abc/",
		ContentType: entity.ContentTypePost,
	})

	firstID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)

	// the single worker is now stuck inside Fetch
	<-sf.entered

	start := time.Now()
	secondID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "Enqueue must not wait for a worker")

	second, ok := h.orch.SnapshotStatus(t.Context(), secondID)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusQueued, second.Status)

	close(sf.release)

	waitTerminal(t, h, firstID)
	waitTerminal(t, h, secondID)
}

func TestProgressClampedAndProcessingAtFinish(t *testing.T) {
	sf := &stallFetcher{
		updates: []fetcher.Update{
			{Status: fetcher.ProgressDownloading, Percent: 150},
			{Status: fetcher.ProgressFinished, Percent: 100},
		},
		emitted: make(chan struct{}),
		resume:  make(chan struct{}),
	}

	h := newHarness(t, sf, 1)

	sessionID := h.sessions.Put(t.Context(), entity.Session{
		URL:         "https://www.instagram.com/p/abc/",
		ContentType: entity.ContentTypePost,
	})

	jobID, err := h.orch.Enqueue(t.Context(), sessionID, "best")
	require.NoError(t, err)

	// after the 150% event: still downloading, clamped to the ceiling
	<-sf.emitted

	job, ok := h.orch.SnapshotStatus(t.Context(), jobID)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusDownloading, job.Status)
	assert.Equal(t, 95, job.Progress)

	sf.resume <- struct{}{}

	// after the finished event: processing, progress pinned to 95
	<-sf.emitted

	job, ok = h.orch.SnapshotStatus(t.Context(), jobID)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusProcessing, job.Status)
	assert.Equal(t, 95, job.Progress)

	sf.resume <- struct{}{}

	job = waitTerminal(t, h, jobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
}

func TestBuildDirective(t *testing.T) {
	tests := []struct {
		name     string
		formatID string
		want     fetcher.Directive
	}{
		{"audio only", consts.FormatAudioOnly, fetcher.Directive{ExtractAudio: true}},
		{"empty defaults to ladder", "", fetcher.Directive{Format: consts.QualityLadder}},
		{"best uses ladder", consts.FormatBest, fetcher.Directive{Format: consts.QualityLadder}},
		{"exact id passes through", "137", fetcher.Directive{Format: "137"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDirective(tt.formatID))
		})
	}
}

func TestShapeFormats(t *testing.T) {
	t.Run("filters, sorts and dedupes heights", func(t *testing.T) {
		raw := []fetcher.RawFormat{
			{FormatID: "audio", ACodec: "mp4a", VCodec: "none"},
			{FormatID: "video-only", VCodec: "avc1", ACodec: "none", Width: 1920, Height: 1080},
			{FormatID: "sd", VCodec: "avc1", ACodec: "mp4a", Width: 854, Height: 480},
			{FormatID: "hd-dup", VCodec: "avc1", ACodec: "mp4a", Width: 1280, Height: 720},
			{FormatID: "hd", VCodec: "avc1", ACodec: "mp4a", Width: 1281, Height: 720},
			{FormatID: "fhd", VCodec: "avc1", ACodec: "mp4a", Width: 1920, Height: 1080},
		}

		got := shapeFormats(raw)

		require.Len(t, got, 4)
		assert.Equal(t, "fhd", got[0].FormatID)
		assert.Equal(t, "High Quality (1080p)", got[0].Quality)
		assert.Equal(t, "hd", got[1].FormatID)
		assert.Equal(t, "HD (720p)", got[1].Quality)
		assert.Equal(t, "sd", got[2].FormatID)
		assert.Equal(t, "Standard (480p)", got[2].Quality)
		assert.Equal(t, consts.FormatAudioOnly, got[3].FormatID)
		assert.Equal(t, "audio", got[3].Type)
	})

	t.Run("caps video entries at three", func(t *testing.T) {
		raw := []fetcher.RawFormat{
			{FormatID: "a", VCodec: "avc1", ACodec: "mp4a", Width: 3840, Height: 2160},
			{FormatID: "b", VCodec: "avc1", ACodec: "mp4a", Width: 2560, Height: 1440},
			{FormatID: "c", VCodec: "avc1", ACodec: "mp4a", Width: 1920, Height: 1080},
			{FormatID: "d", VCodec: "avc1", ACodec: "mp4a", Width: 1280, Height: 720},
		}

		got := shapeFormats(raw)

		require.Len(t, got, 4)
		assert.Equal(t, "a", got[0].FormatID)
		assert.Equal(t, "c", got[2].FormatID)
		assert.Equal(t, consts.FormatAudioOnly, got[3].FormatID)
	})

	t.Run("falls back to best available", func(t *testing.T) {
		got := shapeFormats(nil)

		require.Len(t, got, 2)
		assert.Equal(t, consts.FormatBest, got[0].FormatID)
		assert.Equal(t, "Best Available Quality", got[0].Quality)
		assert.Equal(t, consts.FormatAudioOnly, got[1].FormatID)
	})
}
