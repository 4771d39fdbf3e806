package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"uploader/pkg/logger"
)

// Result is the server's answer to one upload request.
type Result struct {
	StatusCode int
	Message    string
}

// Successful reports whether the server accepted the upload.
func (r *Result) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs a single upload attempt. A non-nil error means no
// response was obtained (network failure); any response, success or not,
// comes back as a Result. Retry policy is entirely the caller's concern.
type Client interface {
	Upload(ctx context.Context, url string, body io.Reader, size int64) (*Result, error)
}

// HTTPClient uploads file contents with a single HTTP PUT per file.
type HTTPClient struct {
	client *http.Client
	logger *logger.Logger
}

// NewHTTPClient returns an HTTP transport client. A zero timeout disables
// the per-request deadline.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		logger: logger.WithField("component", "transport"),
	}
}

func (c *HTTPClient) Upload(ctx context.Context, url string, body io.Reader, size int64) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request for %s: %w", url, err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	c.logger.Debug("upload request", "url", url, "bytes", size)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request to %s failed: %w", url, err)
	}
	defer func() {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.logger.Debug("upload response", "url", url, "status", resp.StatusCode)

	return &Result{StatusCode: resp.StatusCode, Message: resp.Status}, nil
}
