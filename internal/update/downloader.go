package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// HTTPDownloader streams client archives over HTTP
type HTTPDownloader struct {
	userAgent string
	client    *http.Client
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		// No client timeout; the caller's context bounds the transfer
		client: &http.Client{},
	}
}

// WithUserAgent sets the User-Agent header sent with downloads
func (d *HTTPDownloader) WithUserAgent(userAgent string) *HTTPDownloader {
	d.userAgent = userAgent
	return d
}

// WithHTTPClient replaces the underlying HTTP client
func (d *HTTPDownloader) WithHTTPClient(client *http.Client) *HTTPDownloader {
	d.client = client
	return d
}

// Download streams url into dst, overwriting any previous file, and returns the
// number of bytes written. A non-200 response fails before dst is touched. An
// interrupted transfer leaves the partial file in place.
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &NetworkError{Op: "download", URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/octet-stream")
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: "download", URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &NetworkError{
			Op:         "download",
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive file: %w", err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		return written, &NetworkError{Op: "download", URL: url, Err: copyErr}
	}
	if closeErr != nil {
		return written, fmt.Errorf("failed to write archive file: %w", closeErr)
	}

	// Size is the only integrity signal available without a checksum.
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, &NetworkError{
			Op:  "download",
			URL: url,
			Err: fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, written, resp.ContentLength),
		}
	}

	return written, nil
}
