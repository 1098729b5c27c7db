package geko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchTimeout is the hard deadline for one catalog download.
const FetchTimeout = 30 * time.Second

// Fetcher downloads the raw catalog XML. It performs no retries; retry policy
// belongs to the scheduler (next tick) or the operator (manual trigger).
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: FetchTimeout},
	}
}

// Fetch GETs the catalog and returns the body plus its size in bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, &FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return string(body), int64(len(body)), nil
}
