package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/metrics"
)

const maxFilenameRunes = 50

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename replaces characters that are not allowed in file names,
// and every run of whitespace, with underscores.
func SanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "_")
	return whitespaceRun.ReplaceAllString(name, "_")
}

// imageFilename returns the on-disk name used for an attraction image
func imageFilename(title string) string {
	name := []rune(SanitizeFilename(title))
	if len(name) > maxFilenameRunes {
		name = name[:maxFilenameRunes]
	}
	if len(name) == 0 {
		return "untitled.jpg"
	}
	return string(name) + ".jpg"
}

// ImageAcquirer downloads the representative image of an attraction
type ImageAcquirer interface {
	Acquire(ctx context.Context, imageURL, title string) ([]byte, error)
}

// ImageOptions configures an ImageFetcher
type ImageOptions struct {
	Dir       string
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// ImageFetcher downloads images over HTTP and keeps a copy in Dir
type ImageFetcher struct {
	client    *http.Client
	dir       string
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewImageFetcher creates the image directory if needed
func NewImageFetcher(opts ImageOptions, logger *zap.Logger, m *metrics.Metrics) (*ImageFetcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("image directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageFetcher{
		client:    opts.Client,
		dir:       opts.Dir,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Acquire fetches imageURL and stores it under a name derived from title.
// Failures are reported as browser.NetworkError; the caller carries on
// without an image.
func (f *ImageFetcher) Acquire(ctx context.Context, imageURL, title string) ([]byte, error) {
	data, err := f.fetch(ctx, imageURL)
	if err != nil {
		f.metrics.ImageFetched(false)
		return nil, err
	}

	path := filepath.Join(f.dir, imageFilename(title))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		f.metrics.ImageFetched(false)
		return nil, fmt.Errorf("write image %s: %w", path, err)
	}

	f.metrics.ImageFetched(true)
	f.logger.Debug("Saved image", zap.String("url", imageURL), zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

func (f *ImageFetcher) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, browser.NewNetworkError(imageURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, browser.NewNetworkError(imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, browser.NewNetworkError(imageURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, browser.NewNetworkError(imageURL, fmt.Errorf("read body: %w", err))
	}
	if len(data) == 0 {
		return nil, browser.NewNetworkError(imageURL, errors.New("empty body"))
	}
	return data, nil
}
