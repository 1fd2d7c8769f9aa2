package finalizer_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instadl/internal/errs"
	"instadl/internal/finalizer"
)

func newTestFinalizer(t *testing.T, attempts int, interval time.Duration) (*finalizer.Finalizer, string) {
	t.Helper()

	outputDir := t.TempDir()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return finalizer.New(log, outputDir, attempts, interval), outputDir
}

func writeTemp(t *testing.T, payload string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "a1b2c3d4_source.mp4")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	return path
}

func TestFinalizeMovesFile(t *testing.T) {
	fin, outputDir := newTestFinalizer(t, 3, time.Millisecond)
	tempPath := writeTemp(t, "video bytes")

	res, err := fin.Finalize(t.Context(), tempPath, "My Clip", "mp4")
	require.NoError(t, err)

	assert.Equal(t, "My Clip.mp4", res.Filename)
	assert.Equal(t, filepath.Join(outputDir, "My Clip.mp4"), res.Path)
	assert.Equal(t, int64(len("video bytes")), res.Size)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(got))

	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err), "source should be gone after the move")
}

func TestFinalizeSanitizesTitle(t *testing.T) {
	fin, _ := newTestFinalizer(t, 3, time.Millisecond)
	tempPath := writeTemp(t, "x")

	res, err := fin.Finalize(t.Context(), tempPath, `wh*at|is:\this?`, "mp4")
	require.NoError(t, err)

	assert.Equal(t, "wh_at_is__this_.mp4", res.Filename)
}

func TestFinalizeAppendsCounterOnCollision(t *testing.T) {
	fin, outputDir := newTestFinalizer(t, 3, time.Millisecond)

	first := writeTemp(t, "one")
	second := writeTemp(t, "fourteen bytes")
	third := writeTemp(t, "3")

	res1, err := fin.Finalize(t.Context(), first, "Clip", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "Clip.mp4", res1.Filename)

	res2, err := fin.Finalize(t.Context(), second, "Clip", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "Clip_1.mp4", res2.Filename)

	res3, err := fin.Finalize(t.Context(), third, "Clip", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "Clip_2.mp4", res3.Filename)

	// each artifact keeps its own bytes
	assert.Equal(t, int64(3), res1.Size)
	assert.Equal(t, int64(14), res2.Size)
	assert.Equal(t, int64(1), res3.Size)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestConcurrentFinalizeSameTitle(t *testing.T) {
	fin, _ := newTestFinalizer(t, 100, 5*time.Millisecond)

	latePath := filepath.Join(t.TempDir(), "e5f6a7b8_late.mp4")

	type outcome struct {
		res *finalizer.Result
		err error
	}

	lateDone := make(chan outcome, 1)

	// this job starts retrying before its source exists
	go func() {
		res, err := fin.Finalize(context.Background(), latePath, "Clip", "mp4")
		lateDone <- outcome{res: res, err: err}
	}()

	time.Sleep(20 * time.Millisecond)

	// a second job with the same title finishes first
	early, err := fin.Finalize(t.Context(), writeTemp(t, "fourteen bytes"), "Clip", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "Clip.mp4", early.Filename)

	require.NoError(t, os.WriteFile(latePath, []byte("1"), 0o644))

	late := <-lateDone
	require.NoError(t, late.err)

	// the late job must not claim the name the early job already owns
	assert.NotEqual(t, early.Filename, late.res.Filename)

	earlyBytes, err := os.ReadFile(early.Path)
	require.NoError(t, err)
	assert.Equal(t, "fourteen bytes", string(earlyBytes))

	lateBytes, err := os.ReadFile(late.res.Path)
	require.NoError(t, err)
	assert.Equal(t, "1", string(lateBytes))
}

func TestFinalizeMissingSource(t *testing.T) {
	fin, _ := newTestFinalizer(t, 3, time.Millisecond)

	_, err := fin.Finalize(t.Context(), filepath.Join(t.TempDir(), "never.mp4"), "Clip", "mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestFinalizeWaitsForLateSource(t *testing.T) {
	fin, _ := newTestFinalizer(t, 50, 5*time.Millisecond)

	tempPath := filepath.Join(t.TempDir(), "late.mp4")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(tempPath, []byte("late bytes"), 0o644)
	}()

	res, err := fin.Finalize(t.Context(), tempPath, "Late", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "Late.mp4", res.Filename)
	assert.Equal(t, int64(len("late bytes")), res.Size)
}

func TestFinalizeCanceledContext(t *testing.T) {
	fin, _ := newTestFinalizer(t, 10, time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := fin.Finalize(ctx, filepath.Join(t.TempDir(), "never.mp4"), "Clip", "mp4")
	require.Error(t, err)
	assert.ErrorContains(t, err, "finalize canceled")
}
