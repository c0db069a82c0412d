// Package newsapi adapts the NewsAPI "everything" endpoint to the fetch
// capability.
package newsapi

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/postpilot/models"
	"github.com/mohammad-safakhou/postpilot/news"
)

const defaultEndpoint = "https://newsapi.org/v2/everything"

// Client is a thin NewsAPI adapter.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewClient(apiKey, endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type apiResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

// Fetch queries NewsAPI and maps the response to validated Article records.
// Include lists map to the domains parameter; exclusion is applied locally
// since the API has no excludeDomains conjunction with free-text queries on
// every plan.
func (c *Client) Fetch(ctx context.Context, req news.FetchRequest) ([]models.Article, error) {
	params := url.Values{}
	params.Add("q", req.Query)
	params.Add("sortBy", "publishedAt")
	if req.Limit > 0 {
		params.Add("pageSize", strconv.Itoa(req.Limit))
	}
	if len(req.IncludeSources) > 0 {
		params.Add("domains", strings.Join(req.IncludeSources, ","))
	}
	params.Add("apiKey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %v: %w", err, models.ErrFetchUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi status %s: %w", resp.Status, models.ErrFetchUnavailable)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}

	articles := make([]models.Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.Title == "" || a.URL == "" {
			continue // malformed upstream record, dropped at the boundary
		}
		if len(req.ExcludeSources) > 0 && excluded(req.ExcludeSources, a.Source.Name, a.URL) {
			continue
		}
		articles = append(articles, models.Article{
			ID:          articleID(a.URL),
			Title:       a.Title,
			Link:        a.URL,
			Snippet:     a.Description,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
		if req.Limit > 0 && len(articles) >= req.Limit {
			break
		}
	}
	return articles, nil
}

func excluded(excludes []string, sourceName, link string) bool {
	for _, ex := range excludes {
		if strings.EqualFold(ex, sourceName) || strings.Contains(link, ex) {
			return true
		}
	}
	return false
}

// articleID derives a stable id from the article URL so re-fetching the same
// article produces the same chunk ids.
func articleID(link string) string {
	h := sha1.Sum([]byte(link))
	return hex.EncodeToString(h[:8])
}
