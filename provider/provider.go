package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/postpilot/config"
	"github.com/mohammad-safakhou/postpilot/models"
	"github.com/mohammad-safakhou/postpilot/provider/openai"
)

// Embedder maps texts to fixed-dimension vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces posts grounded in retrieved context.
type Generator interface {
	GeneratePosts(ctx context.Context, query string, context []models.ContextChunk, count int) ([]string, error)
}

// NewEmbedder builds the OpenAI-backed embedding capability.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding api key not configured")
	}
	return openai.NewClient(openai.Config{
		APIKey:         cfg.APIKey,
		EmbeddingModel: cfg.Model,
		Timeout:        cfg.Timeout,
	}), nil
}

// NewGenerator builds the OpenAI-backed generation capability.
func NewGenerator(cfg config.GenerationConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generation api key not configured")
	}
	return openai.NewClient(openai.Config{
		APIKey:          cfg.APIKey,
		CompletionModel: cfg.Model,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		Timeout:         cfg.Timeout,
	}), nil
}
