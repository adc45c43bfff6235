package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/traindata-collector/internal/common/logger"
)

const userAgent = "train-data-collector/1.0"

// transient status codes worth another attempt
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// HTTPFetcher downloads one file per call with a bounded retry policy:
// up to Retries attempts, linear backoff of 1+attempt seconds, retried
// only on transient status codes and network-level errors. A 404 is
// permanent and fails immediately.
type HTTPFetcher struct {
	client  *http.Client
	retries int
	creds   Credentials
	logger  logger.Logger

	// sleep is swapped out in tests to avoid real backoff waits
	sleep func(ctx context.Context, d time.Duration)
}

func NewHTTPFetcher(retries int, timeout time.Duration, creds Credentials, logger logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		retries: retries,
		creds:   creds,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, destDir, fallbackName string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}

	destPath := filepath.Join(destDir, filenameFromURL(rawURL, fallbackName))

	attempts := f.retries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// linear backoff: 2s after the first failure, 3s after the
			// second, and so on
			f.sleep(ctx, time.Duration(1+attempt)*time.Second)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}

		err := f.fetchOnce(ctx, rawURL, destPath)
		if err == nil {
			return destPath, nil
		}

		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return "", err
		}

		f.logger.Warn("Download attempt failed",
			"url", rawURL,
			"attempt", attempt+1,
			"error", err)
	}

	return "", &RetryExhaustedError{URL: rawURL, Attempts: attempts}
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if f.creds.Set() {
		req.SetBasicAuth(f.creds.Username, f.creds.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{URL: rawURL}
	case retryStatus[resp.StatusCode]:
		return fmt.Errorf("transient status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("writing response body: %w", err)
	}
	return nil
}

// filenameFromURL derives the saved name from the URL path component,
// falling back to the canonical per-date name when the path is bare.
func filenameFromURL(rawURL, fallbackName string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallbackName
	}
	return name
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
