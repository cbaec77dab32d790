// Package fetch retrieves benchmark assets (suite logs, model topologies)
// over HTTP. There are no retries: a failed request is returned to the caller.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

var (
	// ErrFetch is returned when a document cannot be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrParse is returned when a retrieved document is malformed.
	ErrParse = errors.New("parse failed")
)

// maxDocumentSize bounds the size of a fetched document.
const maxDocumentSize = 64 << 20

// Get performs a single GET and returns the body of a 2xx response.
func Get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: unexpected status %s", ErrFetch, rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrFetch, rawURL, err)
	}
	return body, nil
}

// JSON fetches rawURL and decodes the body into v.
func JSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	body, err := Get(ctx, client, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParse, rawURL, err)
	}
	return nil
}

// Resolve resolves ref against base, as a browser resolves a relative link.
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base url %q: %w", ErrFetch, base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %w", ErrFetch, ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
