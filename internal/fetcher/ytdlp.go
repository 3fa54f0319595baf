// Package fetcher wraps the external yt-dlp binary.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/iconidentify/streamcache/internal/config"
	"github.com/iconidentify/streamcache/internal/domain"
)

// Extensions yt-dlp leaves behind for in-progress downloads.
var partialExtensions = []string{".part", ".ytdl", ".temp"}

// YtdlpFetcher invokes yt-dlp as a subprocess.
type YtdlpFetcher struct {
	cfg        config.FetchConfig
	scratchDir string
	logger     *slog.Logger
}

// NewYtdlpFetcher creates a fetcher writing into scratchDir.
func NewYtdlpFetcher(cfg config.FetchConfig, scratchDir string, logger *slog.Logger) *YtdlpFetcher {
	return &YtdlpFetcher{
		cfg:        cfg,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// Fetch runs yt-dlp synchronously with the configured timeout and returns
// the path of the produced file. Failure modes are reported distinctly:
// non-zero exit (ToolError with bounded stderr), deadline exceeded
// (ErrFetchTimeout), and success exit without output (ErrOutputMissing).
// No retries happen at this layer.
func (f *YtdlpFetcher) Fetch(ctx context.Context, req domain.MediaRequest) (string, error) {
	logger := f.logger.With("identifier", req.Identifier, "kind", req.Kind)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	args := f.buildArgs(req)
	cmd := exec.CommandContext(ctx, f.cfg.YtdlpPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	logger.Info("starting fetch", "tool", f.cfg.YtdlpPath)

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("fetch timed out", "timeout", f.cfg.Timeout)
		return "", domain.ErrFetchTimeout
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logger.Warn("fetch failed", "exit_code", exitCode, "elapsed", time.Since(start))
		return "", domain.NewToolError(req.Identifier, exitCode, stderr.String(), err)
	}

	path, err := f.locateOutput(req.Identifier)
	if err != nil {
		logger.Warn("fetch produced no output", "elapsed", time.Since(start))
		return "", err
	}

	logger.Info("fetch complete", "path", path, "elapsed", time.Since(start))
	return path, nil
}

// buildArgs constructs the yt-dlp argument list for one fetch.
func (f *YtdlpFetcher) buildArgs(req domain.MediaRequest) []string {
	outputTemplate := filepath.Join(f.scratchDir, req.Identifier+".%(ext)s")

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-cache-dir",
		"-o", outputTemplate,
	}

	if req.Kind == domain.KindAudio {
		args = append(args,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", f.cfg.AudioQuality,
		)
	} else {
		format := fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]",
			f.cfg.MaxHeight, f.cfg.MaxHeight)
		args = append(args,
			"-f", format,
			"--merge-output-format", "mp4",
		)
	}

	if f.cfg.CookieFile != "" {
		args = append(args, "--cookies", f.cfg.CookieFile)
	}
	if f.cfg.SkipTLSVerify {
		args = append(args, "--no-check-certificate")
	}

	args = append(args, "https://www.youtube.com/watch?v="+req.Identifier)
	return args
}

// locateOutput finds the produced file by prefix-scan: the tool chooses
// its own extension before post-processing, so the exact name is unknown.
func (f *YtdlpFetcher) locateOutput(identifier string) (string, error) {
	entries, err := os.ReadDir(f.scratchDir)
	if err != nil {
		return "", fmt.Errorf("scan scratch dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, identifier+".") {
			continue
		}
		if isPartial(name) {
			continue
		}
		return filepath.Join(f.scratchDir, name), nil
	}

	return "", domain.ErrOutputMissing
}

func isPartial(name string) bool {
	for _, ext := range partialExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
