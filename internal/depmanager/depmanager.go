// Package depmanager installs and locates the external binaries the
// fetcher shells out to: yt-dlp and ffmpeg. Downloads are verified against
// the published SHA256SUMS before being made executable.
package depmanager

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"

	"instadl/internal/config"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
)

const (
	downloadTimeout      = 10 * time.Minute
	filePermExecutable   = 0o755
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
)

// Manager manages binary dependencies.
type Manager struct {
	log    *slog.Logger
	cfg    *config.Config
	client *http.Client

	mu       sync.RWMutex
	binPaths map[BinaryName]string
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg *config.Config) *Manager {
	return &Manager{
		log:      log.With(slog.String("package", "depmanager")),
		cfg:      cfg,
		client:   &http.Client{Timeout: downloadTimeout},
		binPaths: make(map[BinaryName]string),
	}
}

// Start makes the binaries available, either from the system PATH or by
// downloading them into the bins directory. Returns an error when neither
// yt-dlp nor ffmpeg can be provided.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.DepManager.UseSystemBinaries {
		return m.setSystemBinaries()
	}

	return m.installAll(ctx)
}

// BinaryPath returns the resolved path for a binary, or "" when unknown.
func (m *Manager) BinaryPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

func (m *Manager) setSystemBinaries() error {
	for _, name := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(name))
		if err != nil {
			return fmt.Errorf("lookup %s: %w", name, err)
		}

		m.setBinaryPath(name, path)
	}

	return nil
}

func (m *Manager) installAll(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.DepManager.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return m.installYTdlp(gctx) })
	g.Go(func() error { return m.installFFmpeg(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("install binaries: %w", err)
	}

	return nil
}

func (m *Manager) installYTdlp(ctx context.Context) error {
	dest := filepath.Join(m.cfg.DepManager.BinsDir, string(BinaryYTdlp))
	if fileExists(dest) {
		m.setBinaryPath(BinaryYTdlp, dest)

		return nil
	}

	url, err := selectURL(m.cfg.DepManager.YTdlpLinuxARM64, m.cfg.DepManager.YTdlpLinuxAMD64)
	if err != nil {
		return fmt.Errorf("select yt-dlp build: %w", err)
	}

	sums, err := m.fetchSHASums(ctx, m.cfg.DepManager.YTdlpSHA256SumsURL)
	if err != nil {
		m.log.WarnContext(ctx, "fetch yt-dlp checksums failed, skipping verification", slog.Any("error", err))
	}

	data, err := m.download(ctx, url)
	if err != nil {
		return fmt.Errorf("download yt-dlp: %w", err)
	}

	if err := verifySum(data, sums[filepath.Base(url)]); err != nil {
		return fmt.Errorf("verify yt-dlp: %w", err)
	}

	if err := os.WriteFile(dest, data, filePermExecutable); err != nil {
		return fmt.Errorf("write yt-dlp: %w", err)
	}

	m.setBinaryPath(BinaryYTdlp, dest)
	m.log.InfoContext(ctx, "installed binary", slog.String("binary", string(BinaryYTdlp)), slog.String("path", dest))

	return nil
}

func (m *Manager) installFFmpeg(ctx context.Context) error {
	ffmpegDest := filepath.Join(m.cfg.DepManager.BinsDir, string(BinaryFFmpeg))
	ffprobeDest := filepath.Join(m.cfg.DepManager.BinsDir, string(BinaryFFprobe))

	if fileExists(ffmpegDest) && fileExists(ffprobeDest) {
		m.setBinaryPath(BinaryFFmpeg, ffmpegDest)
		m.setBinaryPath(BinaryFFprobe, ffprobeDest)

		return nil
	}

	url, err := selectURL(m.cfg.DepManager.FFmpegLinuxARM64, m.cfg.DepManager.FFmpegLinuxAMD64)
	if err != nil {
		return fmt.Errorf("select ffmpeg build: %w", err)
	}

	sums, err := m.fetchSHASums(ctx, m.cfg.DepManager.FFmpegSHA256SumsURL)
	if err != nil {
		m.log.WarnContext(ctx, "fetch ffmpeg checksums failed, skipping verification", slog.Any("error", err))
	}

	data, err := m.download(ctx, url)
	if err != nil {
		return fmt.Errorf("download ffmpeg: %w", err)
	}

	if err := verifySum(data, sums[filepath.Base(url)]); err != nil {
		return fmt.Errorf("verify ffmpeg: %w", err)
	}

	archivePath := filepath.Join(m.cfg.DepManager.BinsDir, filepath.Base(url))
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		return fmt.Errorf("write ffmpeg archive: %w", err)
	}
	defer os.Remove(archivePath)

	targets := map[string]struct{}{
		string(BinaryFFmpeg):  {},
		string(BinaryFFprobe): {},
	}

	if err := m.extractFromTarXZ(archivePath, m.cfg.DepManager.BinsDir, targets); err != nil {
		return fmt.Errorf("extract ffmpeg: %w", err)
	}

	for _, path := range []string{ffmpegDest, ffprobeDest} {
		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}

	m.setBinaryPath(BinaryFFmpeg, ffmpegDest)
	m.setBinaryPath(BinaryFFprobe, ffprobeDest)
	m.log.InfoContext(ctx, "installed binary", slog.String("binary", string(BinaryFFmpeg)), slog.String("path", ffmpegDest))

	return nil
}

func (m *Manager) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

// fetchSHASums downloads a SHA256SUMS file and parses it into a
// filename -> hash map.
func (m *Manager) fetchSHASums(ctx context.Context, url string) (map[string]string, error) {
	data, err := m.download(ctx, url)
	if err != nil {
		return nil, err
	}

	return ParseSHASums(string(data)), nil
}

// ParseSHASums parses SHA256SUMS content in the usual "<hash>  <file>"
// layout, tolerating either column order.
func ParseSHASums(content string) map[string]string {
	sums := make(map[string]string)

	for line := range strings.Lines(content) {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) != sha256SumsFieldCount {
			continue
		}

		hash, file := fields[0], fields[1]
		if len(hash) != sha256HexLength {
			hash, file = fields[1], fields[0]
		}

		if len(hash) != sha256HexLength {
			continue
		}

		sums[strings.TrimPrefix(file, "*")] = strings.ToLower(hash)
	}

	return sums
}

// verifySum checks data against an expected sha256 hex digest. An empty
// expectation skips verification (checksums file was unreachable).
func verifySum(data []byte, expected string) error {
	if expected == "" {
		return nil
	}

	digest := sha256.Sum256(data)

	got := hex.EncodeToString(digest[:])
	if got != expected {
		return fmt.Errorf("sha256 mismatch: got %s, want %s", got, expected)
	}

	return nil
}

// extractFromTarXZ extracts the target file names (matched by base name)
// from a .tar.xz archive into destDir.
func (m *Manager) extractFromTarXZ(tarXZPath, destDir string, targets map[string]struct{}) error {
	file, err := os.Open(tarXZPath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	remaining := len(targets)

	for remaining > 0 {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if _, wanted := targets[base]; !wanted {
			continue
		}

		out, err := os.OpenFile(filepath.Join(destDir, base), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create %s: %w", base, err)
		}

		if _, err := io.Copy(out, tarReader); err != nil {
			out.Close()

			return fmt.Errorf("extract %s: %w", base, err)
		}

		out.Close()
		remaining--
	}

	if remaining > 0 {
		return fmt.Errorf("archive is missing %d of %d target files", remaining, len(targets))
	}

	return nil
}

func (m *Manager) setBinaryPath(name BinaryName, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = path
}

// selectURL picks the download for the current platform. Only linux builds
// are published; other systems must bring their own binaries.
func selectURL(linuxARM64, linuxAMD64 string) (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("no prebuilt binaries for %s; set INSTADL_DEPMANAGER_USE_SYSTEM_BINARIES=true", runtime.GOOS)
	}

	if runtime.GOARCH == "arm64" {
		return linuxARM64, nil
	}

	return linuxAMD64, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
