// Package openai implements the embedding and generation capabilities against
// OpenAI's HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/postpilot/models"
)

const (
	completionsURL = "https://api.openai.com/v1/chat/completions"
	embeddingsURL  = "https://api.openai.com/v1/embeddings"
)

// Config configures the client. Either model may be empty when the client is
// used for only one capability.
type Config struct {
	APIKey          string
	CompletionModel string
	EmbeddingModel  string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	BaseURL         string // override for tests
}

// Client talks to OpenAI's chat-completions and embeddings endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

// Message is one turn in a chat-completions conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) url(path string) string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL + path
	}
	switch path {
	case "/embeddings":
		return embeddingsURL
	default:
		return completionsURL
	}
}

// CreateEmbedding generates embeddings for the given texts.
func (c *Client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := map[string]interface{}{
		"model": c.cfg.EmbeddingModel,
		"input": texts,
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := c.post(ctx, c.url("/embeddings"), body, &out); err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(out.Data))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// GeneratePosts asks the completion model for count short posts grounded in
// the retrieved context, one per line.
func (c *Client) GeneratePosts(ctx context.Context, query string, contextChunks []models.ContextChunk, count int) ([]string, error) {
	var sb strings.Builder
	for i, ch := range contextChunks {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, ch.Title, ch.SourceName, ch.Text)
	}
	systemPrompt := "You write short social posts grounded strictly in the provided news excerpts. " +
		"Each post must be under 280 characters, self-contained, factual, and engaging. " +
		"Respond with exactly the requested number of posts, one per line, no numbering, no extra text."
	userPrompt := fmt.Sprintf("Topic: %s\n\nNews excerpts:\n%s\nWrite %d posts.", query, sb.String(), count)

	body := map[string]interface{}{
		"model": c.cfg.CompletionModel,
		"messages": []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, c.url("/chat/completions"), body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}
	posts := splitPosts(out.Choices[0].Message.Content)
	if len(posts) > count {
		posts = posts[:count]
	}
	return posts, nil
}

func splitPosts(content string) []string {
	var posts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		posts = append(posts, line)
	}
	return posts
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
