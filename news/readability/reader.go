// Package readability extracts article body text from web pages.
package readability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	goreadability "github.com/go-shiori/go-readability"
)

// Reader fetches a page and extracts its main text content.
type Reader struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

func NewReader(timeout time.Duration, maxBodyBytes int64) *Reader {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 2 << 20
	}
	return &Reader{
		httpClient:   &http.Client{Timeout: timeout},
		maxBodyBytes: maxBodyBytes,
	}
}

// Extract downloads link and returns the readable text content. Failures are
// per-article: the caller falls back to the feed snippet.
func (r *Reader) Extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page status %s", resp.Status)
	}

	article, err := goreadability.FromReader(io.LimitReader(resp.Body, r.maxBodyBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}
	return article.TextContent, nil
}
