package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultSourceURL is a CelesTrak GP query; %d is the NORAD catalog number.
	DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?CATNR=%d&FORMAT=tle"
	// DefaultMaxBytes caps a single response body.
	DefaultMaxBytes = 1 << 20
)

// Fetcher retrieves TLE sets for single satellites from a remote catalog.
type Fetcher struct {
	sourceURL  string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. sourceURL must contain one %d verb for the
// catalog number; empty selects DefaultSourceURL.
func NewFetcher(sourceURL string, maxBytes int64, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		sourceURL: sourceURL,
		maxBytes:  maxBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL template.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

func (f *Fetcher) url(noradID int) string {
	if strings.Contains(f.sourceURL, "%d") {
		return fmt.Sprintf(f.sourceURL, noradID)
	}
	return f.sourceURL
}

// Fetch performs an HTTP GET for one catalog number and returns the raw body.
func (f *Fetcher) Fetch(ctx context.Context, noradID int) ([]byte, error) {
	url := f.url(noradID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", url, f.maxBytes)
	}

	f.logger.Debug("TLE fetched",
		"norad_id", noradID,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}

// Lookup fetches and parses the TLE for noradID. It returns ErrNoEntries if
// the response holds no set for that catalog number.
func (f *Fetcher) Lookup(ctx context.Context, noradID int) (Entry, error) {
	body, err := f.Fetch(ctx, noradID)
	if err != nil {
		return Entry{}, err
	}
	entries, err := Parse(strings.NewReader(string(body)), f.logger)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.NORADID == noradID {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w for NORAD %d", ErrNoEntries, noradID)
}
