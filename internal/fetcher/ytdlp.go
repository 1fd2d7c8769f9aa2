package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"instadl/internal/config"
	"instadl/internal/consts"
	"instadl/internal/depmanager"
	"instadl/pkg/calc"
	"instadl/pkg/gen"

	"github.com/lrstanley/go-ytdlp"
)

const defaultProgressFreq = 200 * time.Millisecond

// changing this may break parseStdout().
const defaultPrintAfterMove = "after_move:filepath"

// YTdlp fetches content through the yt-dlp binary managed by depmanager.
type YTdlp struct {
	log    *slog.Logger
	cfg    *config.Config
	depMgr *depmanager.Manager
}

var _ Fetcher = (*YTdlp)(nil)

// NewYTdlp creates a yt-dlp backed fetcher.
func NewYTdlp(log *slog.Logger, cfg *config.Config, depMgr *depmanager.Manager) *YTdlp {
	return &YTdlp{
		log:    log.With(slog.String("package", "fetcher"), slog.String("fetcher", consts.FetcherYTdlp)),
		cfg:    cfg,
		depMgr: depMgr,
	}
}

// Resolve extracts metadata without downloading anything.
func (f *YTdlp) Resolve(ctx context.Context, url string) (*Info, error) {
	log := f.log.With(slog.String("func", "Resolve"))

	command := f.newCommand().
		SkipDownload().
		PrintJSON()

	res, err := command.Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp resolve", slog.Any("error", err))

		return nil, Classify(fmt.Errorf("ytdlp resolve: %w", err))
	}

	info, _, err := parseStdout(res.Stdout)
	if err != nil {
		return nil, Classify(fmt.Errorf("parse resolve output: %w", err))
	}

	return info.toInfo(), nil
}

// Fetch downloads the URL per the directive, relaying progress events.
// The reported temp path is whatever yt-dlp printed after moving the file;
// when audio extraction is requested this is already the transcoded file.
func (f *YTdlp) Fetch(ctx context.Context, url string, directive Directive, onProgress ProgressFunc) (*FetchResult, error) {
	log := f.log.With(slog.String("func", "Fetch"))

	outputTemplate := filepath.Join(f.cfg.Dir.Temp, gen.ShortID()+"_%(title)s.%(ext)s")

	command := f.newCommand().
		PrintJSON().
		Print(defaultPrintAfterMove).
		Output(outputTemplate)

	if onProgress != nil {
		command = command.ProgressFunc(defaultProgressFreq, func(prog ytdlp.ProgressUpdate) {
			onProgress(mapProgress(prog))
		})
	}

	if directive.ExtractAudio {
		command = command.
			ExtractAudio().
			AudioFormat(consts.AudioCodec).
			AudioQuality(consts.AudioQuality)
	} else if directive.Format != "" {
		command = command.Format(directive.Format)
	}

	res, err := command.Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp fetch", slog.Any("error", err))

		return nil, Classify(fmt.Errorf("ytdlp fetch: %w", err))
	}

	info, tempPath, err := parseStdout(res.Stdout)
	if err != nil {
		return nil, Classify(fmt.Errorf("parse fetch output: %w", err))
	}

	if tempPath == "" {
		return nil, fmt.Errorf("ytdlp did not report an output path")
	}

	container := info.Ext
	if directive.ExtractAudio {
		container = consts.AudioCodec
	}

	log.DebugContext(ctx, "fetch done",
		slog.String("temp_path", tempPath),
		slog.String("container", container))

	return &FetchResult{
		TempPath:  tempPath,
		Container: container,
		Title:     info.Title,
	}, nil
}

func (f *YTdlp) newCommand() *ytdlp.Command {
	command := ytdlp.New().
		CacheDir(f.cfg.Dir.Cache).
		NoPlaylist()

	if path := f.depMgr.BinaryPath(depmanager.BinaryYTdlp); path != "" {
		command = command.SetExecutable(path)
	}

	if f.cfg.Dir.CookieFile != "" {
		command = command.Cookies(f.cfg.Dir.CookieFile)
	}

	return command
}

func mapProgress(prog ytdlp.ProgressUpdate) Update {
	if prog.Finished.IsZero() {
		return Update{
			Status:  ProgressDownloading,
			Percent: float64(calc.Progress(prog.DownloadedBytes, prog.TotalBytes)),
		}
	}

	return Update{Status: ProgressFinished, Percent: 100}
}
