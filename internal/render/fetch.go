package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hpungsan/chartd/internal/errors"
)

// maxImageBytes caps how much of a renderer response is read.
const maxImageBytes = 16 << 20

// Image is a fetched chart image, or the placeholder when the fetch failed.
type Image struct {
	Data        []byte
	ContentType string

	// Fallback is true when Data is the placeholder.
	Fallback bool

	// Err is the render failure that caused the fallback, if any.
	Err error
}

// Placeholder returns the fallback image carrying err.
func Placeholder(err error) Image {
	return Image{
		Data:        []byte(PlaceholderSVG),
		ContentType: "image/svg+xml",
		Fallback:    true,
		Err:         err,
	}
}

// Fetcher loads render URLs over HTTP. Failures never escape: any transport
// error or non-2xx answer yields the placeholder image.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher with the given per-request timeout.
// A nil logger disables logging.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = nopLogger()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch performs a GET on url and returns the image it answered with.
func (f *Fetcher) Fetch(ctx context.Context, url string) Image {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return f.fail(url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.fail(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageBytes))
		return f.fail(url, fmt.Errorf("renderer returned %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return f.fail(url, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return Image{Data: data, ContentType: ct}
}

func (f *Fetcher) fail(url string, err error) Image {
	rerr := errors.NewRenderFailure(url, err)
	f.logger.Warn("render failed, using placeholder", "error", err)
	return Placeholder(rerr)
}
