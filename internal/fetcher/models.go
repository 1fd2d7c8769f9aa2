package fetcher

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"instadl/pkg/maths"
)

var (
	maxJSONSize = 10 * 1024 * 1024 // 10 MiB scanner buffer
	bufSize     = 4096

	// a bare printed file path, as opposed to a JSON object line
	reFilepath = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`)
)

// infoJSON is the subset of yt-dlp's JSON output the service consumes.
type infoJSON struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Duration  float64      `json:"duration"`
	Uploader  string       `json:"uploader"`
	Thumbnail string       `json:"thumbnail"`
	ViewCount float64      `json:"view_count"`
	Ext       string       `json:"ext"`
	Formats   []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	Filesize float64 `json:"filesize"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
}

func (ij *infoJSON) toInfo() *Info {
	info := &Info{
		Title:     ij.Title,
		Duration:  maths.RoundFloat64ToInt(ij.Duration),
		Uploader:  ij.Uploader,
		Thumbnail: ij.Thumbnail,
		ViewCount: maths.RoundFloat64ToInt(ij.ViewCount),
		Formats:   make([]RawFormat, 0, len(ij.Formats)),
	}

	for _, f := range ij.Formats {
		info.Formats = append(info.Formats, RawFormat{
			FormatID: f.FormatID,
			Ext:      f.Ext,
			Filesize: maths.RoundFloat64ToInt64(f.Filesize),
			Width:    f.Width,
			Height:   f.Height,
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
		})
	}

	return info
}

// parseStdout scans yt-dlp stdout for the JSON result object and the
// printed after-move file path. yt-dlp interleaves both on separate lines.
func parseStdout(stdout string) (info *infoJSON, filePath string, err error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ij infoJSON
		if jsonErr := json.Unmarshal([]byte(line), &ij); jsonErr == nil && ij.ID != "" {
			info = &ij

			continue
		}

		if reFilepath.MatchString(line) {
			filePath = line
		}
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, "", fmt.Errorf("scan stdout: %w", scanErr)
	}

	if info == nil {
		return nil, "", fmt.Errorf("no result object in stdout")
	}

	return info, filePath, nil
}
