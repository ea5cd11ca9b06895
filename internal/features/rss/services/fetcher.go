package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/models"
)

// Fetcher retrieves the raw body of a feed document
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StatusError reports a response that arrived with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s returned status %d", e.URL, e.StatusCode)
}

// HTTPFetcher fetches feeds over HTTP
type HTTPFetcher struct {
	client *http.Client
	logger *core.Logger
	config *models.FetcherConfig
}

// NewHTTPFetcher creates a fetcher whose client applies config.Timeout to each
// request
func NewHTTPFetcher(logger *core.Logger, config *models.FetcherConfig) *HTTPFetcher {
	client := &http.Client{
		Timeout: config.Timeout,
	}

	return &HTTPFetcher{
		client: client,
		logger: logger,
		config: config,
	}
}

// Fetch performs a GET and returns the body. A remote that answers with an
// error status yields *StatusError; no response at all yields the wrapped
// transport error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	f.logger.Debug("Fetched feed", "url", url, "bytes", len(body))
	return string(body), nil
}
