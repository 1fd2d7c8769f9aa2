package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instadl/internal/errs"
)

func TestParseStdout(t *testing.T) {
	stdout := `[download] Destination: /tmp/a1b2c3d4_clip.mp4
{"id":"DEF123","title":"A Clip","duration":12.7,"uploader":"someone","view_count":101.0,"ext":"mp4","formats":[{"format_id":"137","ext":"mp4","filesize":1048576,"width":1920,"height":1080,"vcodec":"avc1","acodec":"mp4a"},{"format_id":"sb0","ext":"mhtml","vcodec":"none","acodec":"none"}]}
/tmp/a1b2c3d4_clip.mp4
`

	info, filePath, err := parseStdout(stdout)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/a1b2c3d4_clip.mp4", filePath)
	assert.Equal(t, "A Clip", info.Title)
	assert.Equal(t, "DEF123", info.ID)
	require.Len(t, info.Formats, 2)
	assert.Equal(t, "137", info.Formats[0].FormatID)
}

func TestParseStdoutNoResultObject(t *testing.T) {
	_, _, err := parseStdout("[download] 100% of 1.00MiB\n")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no result object")
}

func TestParseStdoutIgnoresBlankAndLogLines(t *testing.T) {
	stdout := "\n\n{\"id\":\"X\",\"title\":\"t\"}\n[info] Writing video metadata\n"

	info, filePath, err := parseStdout(stdout)
	require.NoError(t, err)

	assert.Equal(t, "t", info.Title)
	assert.Empty(t, filePath)
}

func TestToInfoRoundsNumericFields(t *testing.T) {
	ij := &infoJSON{
		ID:        "X",
		Title:     "t",
		Duration:  12.7,
		ViewCount: 99.4,
		Formats:   []formatJSON{{FormatID: "137", Filesize: 1048576.9}},
	}

	info := ij.toInfo()

	assert.Equal(t, 13, info.Duration)
	assert.Equal(t, 99, info.ViewCount)
	require.Len(t, info.Formats, 1)
	assert.Equal(t, int64(1048577), info.Formats[0].Filesize)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"login prompt", errors.New("ERROR: You need to log in to access this content"), errs.ErrAuthenticationRequired},
		{"cookie hint", errors.New("ERROR: use --cookies for authentication"), errs.ErrAuthenticationRequired},
		{"registered users", errors.New("ERROR: only available for registered users"), errs.ErrPrivateContent},
		{"private account", errors.New("ERROR: this account is private"), errs.ErrPrivateContent},
		{"unavailable", errors.New("ERROR: Video unavailable"), errs.ErrContentUnavailable},
		{"not found", errors.New("ERROR: content not found"), errs.ErrContentUnavailable},
		{"http 404", errors.New("HTTP Error 404"), errs.ErrContentUnavailable},
		{"context canceled", context.Canceled, errs.ErrContentUnavailable},
		{"anything else", errors.New("Unsupported URL scheme"), errs.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestClassifyPreservesCause(t *testing.T) {
	cause := errors.New("ERROR: Video unavailable")

	got := Classify(cause)
	assert.ErrorIs(t, got, cause)
	assert.ErrorContains(t, got, "Video unavailable")
}
