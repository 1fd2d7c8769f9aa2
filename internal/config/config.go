// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Job        Job
	Dir        Dir
	Finalize   Finalize
	DepManager DepManager
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"INSTADL_APP_LOG_LEVEL" envDefault:"info"`
}

// Job holds job processing configuration.
type Job struct {
	// Workers is the width of the download worker pool.
	Workers int `env:"INSTADL_APP_JOB_WORKERS" envDefault:"15"`
}

// Finalize holds the rename/retry protocol configuration.
type Finalize struct {
	// Attempts bounds the rename retry loop after a fetch reports success.
	Attempts int `env:"INSTADL_FINALIZE_ATTEMPTS" envDefault:"60"`
	// Interval is the spacing between rename attempts.
	Interval time.Duration `env:"INSTADL_FINALIZE_INTERVAL" envDefault:"500ms"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"INSTADL_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"INSTADL_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ExtractTimeout  time.Duration `env:"INSTADL_HTTP_EXTRACT_TIMEOUT"  envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"INSTADL_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for outputs, cache, and cookie file.
type Dir struct {
	Outputs string `env:"INSTADL_DIR_OUTPUTS" envDefault:"./data/outputs"` // finalized files served from here
	Temp    string `env:"INSTADL_DIR_TEMP"    envDefault:"./data/tmp"`     // fetcher writes in-flight files here
	Cache   string `env:"INSTADL_DIR_CACHE"   envDefault:"./data/cache"`   // yt-dlp cache (meta, sigs)

	// must contain cookies.txt file
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"INSTADL_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Outputs, err = filepath.Abs(c.Outputs); err != nil {
		return fmt.Errorf("outputs: %w", err)
	}

	if c.Temp, err = filepath.Abs(c.Temp); err != nil {
		return fmt.Errorf("temp: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"INSTADL_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"INSTADL_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"INSTADL_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"INSTADL_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"INSTADL_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"INSTADL_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"INSTADL_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"INSTADL_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	return cfg, nil
}
