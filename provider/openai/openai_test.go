package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateEmbeddingOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}
		// deliver out of order, client must reorder by index
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", EmbeddingModel: "m", BaseURL: srv.URL})
	vecs, err := c.CreateEmbedding(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreateEmbedding: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("embeddings not ordered by index: %v", vecs)
	}
}

func TestGeneratePostsSplitsLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "post one\n\npost two\npost three\npost four"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", CompletionModel: "m", BaseURL: srv.URL})
	posts, err := c.GeneratePosts(context.Background(), "q", nil, 3)
	if err != nil {
		t.Fatalf("GeneratePosts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected posts capped at 3, got %d", len(posts))
	}
	if posts[0] != "post one" || posts[2] != "post three" {
		t.Fatalf("unexpected posts: %v", posts)
	}
}

func TestPostNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test", EmbeddingModel: "m", BaseURL: srv.URL})
	if _, err := c.CreateEmbedding(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on 429")
	}
}
