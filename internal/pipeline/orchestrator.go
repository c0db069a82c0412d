// Package pipeline drives one retrieval-augmented generation run:
// fetch -> chunk -> embed -> upsert -> retrieve -> generate, recording every
// artifact in the session manifest before advancing so cleanup always has a
// complete picture.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/chunk"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/models"
	"github.com/mohammad-safakhou/postpilot/news"
	"github.com/mohammad-safakhou/postpilot/provider"
)

// State names the stages of a run.
type State string

const (
	StateCreated    State = "created"
	StateFetching   State = "fetching"
	StateChunking   State = "chunking"
	StateEmbedding  State = "embedding"
	StateIndexed    State = "indexed"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Reader extracts full article text; failures fall back to the snippet.
type Reader interface {
	Extract(ctx context.Context, link string) (string, error)
}

// Options bounds the run.
type Options struct {
	Retries      int
	Backoff      time.Duration
	BatchSize    int
	Workers      int
	MetadataText int // max chunk text carried in vector metadata
}

func (o Options) withDefaults() Options {
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 300 * time.Millisecond
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MetadataText <= 0 {
		o.MetadataText = 1000
	}
	return o
}

// Orchestrator wires the capabilities together. One Orchestrator serves many
// concurrent runs; per-run state lives on the stack.
type Orchestrator struct {
	fetcher   news.Fetcher
	reader    Reader // nil disables scraping
	embedder  provider.Embedder
	generator provider.Generator
	store     vectorstore.Gateway
	registry  session.Registry
	artifacts *artifact.Store
	chunker   chunk.Chunker
	opts      Options
	logger    *log.Logger
}

func NewOrchestrator(
	fetcher news.Fetcher,
	reader Reader,
	embedder provider.Embedder,
	generator provider.Generator,
	store vectorstore.Gateway,
	registry session.Registry,
	artifacts *artifact.Store,
	chunker chunk.Chunker,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		reader:    reader,
		embedder:  embedder,
		generator: generator,
		store:     store,
		registry:  registry,
		artifacts: artifacts,
		chunker:   chunker,
		opts:      opts.withDefaults(),
		logger:    log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
	}
}

// Request is one generation request.
type Request struct {
	Query          string
	Count          int
	TopK           int
	FetchLimit     int
	IncludeSources []string
	ExcludeSources []string
}

// Normalize applies the derived defaults: two context chunks per post, twice
// that many fetched articles, both capped at 50.
func (r *Request) Normalize() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty: %w", models.ErrInvalidRequest)
	}
	if r.Count == 0 {
		r.Count = 3
	}
	if r.Count < 1 || r.Count > 50 {
		return fmt.Errorf("count must be between 1 and 50: %w", models.ErrInvalidRequest)
	}
	if r.TopK == 0 {
		r.TopK = min(r.Count*2, 50)
	}
	if r.TopK < 1 || r.TopK > 50 {
		return fmt.Errorf("top_k must be between 1 and 50: %w", models.ErrInvalidRequest)
	}
	if r.FetchLimit == 0 {
		r.FetchLimit = min(r.TopK*2, 50)
	}
	if r.FetchLimit < 1 || r.FetchLimit > 50 {
		return fmt.Errorf("fetch_limit must be between 1 and 50: %w", models.ErrInvalidRequest)
	}
	return nil
}

// Run executes the pipeline to a terminal state. On failure the session stays
// registered (marked failed) with its artifact manifest intact so cleanup can
// reclaim everything; the only exception is a fetch that found nothing, which
// leaves no resources behind and therefore no registry entry.
func (o *Orchestrator) Run(ctx context.Context, req Request) (models.GenerateResult, error) {
	if err := req.Normalize(); err != nil {
		return models.GenerateResult{}, err
	}

	sessionID := uuid.NewString()[:8]
	state := StateCreated
	var stats models.PipelineStats

	sess := models.Session{
		ID:        sessionID,
		Query:     req.Query,
		CreatedAt: time.Now().UTC(),
		State:     models.SessionStateRunning,
	}
	if err := o.registry.Create(ctx, sess); err != nil {
		return models.GenerateResult{}, fmt.Errorf("register session: %w", err)
	}

	fail := func(stage State, err error) (models.GenerateResult, error) {
		o.logger.Printf("session %s failed at %s: %v", sessionID, stage, err)
		runsTotal.WithLabelValues(models.ErrorCode(err)).Inc()
		if _, uerr := o.registry.Update(ctx, sessionID, func(s *models.Session) {
			s.State = models.SessionStateFailed
			s.FailReason = models.ErrorCode(err)
		}); uerr == nil {
			o.writeManifest(ctx, sessionID)
		}
		return models.GenerateResult{SessionID: sessionID, Query: req.Query, Stats: stats}, err
	}

	// FETCHING
	state = StateFetching
	articles, err := o.fetcher.Fetch(ctx, news.FetchRequest{
		Query:          req.Query,
		Limit:          req.FetchLimit,
		IncludeSources: req.IncludeSources,
		ExcludeSources: req.ExcludeSources,
	})
	if err != nil {
		return fail(state, err)
	}
	if len(articles) == 0 {
		// nothing was written, so nothing needs cleanup
		_ = o.registry.Remove(ctx, sessionID)
		runsTotal.WithLabelValues("NoArticlesFound").Inc()
		return models.GenerateResult{SessionID: sessionID, Query: req.Query, Stats: stats},
			fmt.Errorf("query %q: %w", req.Query, models.ErrNoArticlesFound)
	}
	stats.ArticlesFetched = len(articles)
	stats.ArticlesScraped = o.scrape(ctx, articles)

	if err := o.writeArtifact(ctx, sessionID, "articles", articles, &sess); err != nil {
		return fail(state, err)
	}
	if _, err := o.registry.Update(ctx, sessionID, func(s *models.Session) {
		s.ArticleCount = len(articles)
	}); err != nil {
		return fail(state, err)
	}

	// CHUNKING
	state = StateChunking
	var chunks []models.Chunk
	byArticle := make(map[string]models.Article, len(articles))
	for _, a := range articles {
		byArticle[a.ID] = a
		chunks = append(chunks, o.chunker.ChunkArticle(a, sessionID)...)
	}
	stats.ChunksCreated = len(chunks)
	if err := o.writeArtifact(ctx, sessionID, "chunks", chunks, &sess); err != nil {
		return fail(state, err)
	}
	if len(chunks) == 0 {
		return fail(state, fmt.Errorf("no embeddable text in %d articles: %w", len(articles), models.ErrEmbeddingExhausted))
	}

	// EMBEDDING
	state = StateEmbedding
	records, skipped := o.embedChunks(ctx, chunks, byArticle)
	stats.ChunksSkipped = skipped
	chunksSkippedTotal.Add(float64(skipped))
	if len(records) == 0 {
		return fail(state, fmt.Errorf("%d of %d chunks failed: %w", skipped, len(chunks), models.ErrEmbeddingExhausted))
	}
	err = withRetry(ctx, o.opts.Retries, o.opts.Backoff, func() error {
		return o.store.Upsert(ctx, records)
	})
	if err != nil {
		return fail(state, err)
	}
	state = StateIndexed
	stats.VectorsStored = len(records)
	vectorsStoredTotal.Add(float64(len(records)))

	// RETRIEVING
	state = StateRetrieving
	queryVecs, err := o.embedder.CreateEmbedding(ctx, []string{req.Query})
	if err != nil || len(queryVecs) == 0 {
		return fail(state, fmt.Errorf("embed query: %v: %w", err, models.ErrEmbeddingExhausted))
	}
	filter := vectorstore.Filter{
		SessionID:      sessionID,
		IncludeSources: req.IncludeSources,
		ExcludeSources: req.ExcludeSources,
	}
	var matches []models.Match
	err = withRetry(ctx, o.opts.Retries, o.opts.Backoff, func() error {
		var qerr error
		matches, qerr = o.store.Query(ctx, queryVecs[0], req.TopK, filter)
		return qerr
	})
	if err != nil {
		return fail(state, err)
	}
	stats.SearchResults = len(matches)

	// GENERATING
	state = StateGenerating
	contextChunks := make([]models.ContextChunk, 0, len(matches))
	sources := make([]models.SourceRef, 0, len(matches))
	for _, m := range matches {
		md := m.Record.Metadata
		contextChunks = append(contextChunks, models.ContextChunk{
			Text:       md.Text,
			SourceName: md.SourceName,
			Title:      md.Title,
		})
		sources = append(sources, models.SourceRef{
			ArticleID:      md.ArticleID,
			Title:          md.Title,
			SourceName:     md.SourceName,
			Link:           md.Link,
			RelevanceScore: m.Score,
		})
	}
	results, err := o.generator.GeneratePosts(ctx, req.Query, contextChunks, req.Count)
	if err != nil {
		return fail(state, fmt.Errorf("%v: %w", err, models.ErrGenerationError))
	}

	// DONE
	state = StateDone
	if _, err := o.registry.Update(ctx, sessionID, func(s *models.Session) {
		s.State = models.SessionStateDone
	}); err != nil {
		o.logger.Printf("session %s: record done state: %v", sessionID, err)
	}
	o.writeManifest(ctx, sessionID)
	runsTotal.WithLabelValues("Done").Inc()
	o.logger.Printf("session %s done: %d articles, %d chunks, %d vectors, %d hits",
		sessionID, stats.ArticlesFetched, stats.ChunksCreated, stats.VectorsStored, stats.SearchResults)

	return models.GenerateResult{
		SessionID: sessionID,
		Query:     req.Query,
		Results:   results,
		Sources:   sources,
		Stats:     stats,
	}, nil
}

// scrape replaces snippets with extracted full text where the reader
// succeeds. Per-article failures are tolerated.
func (o *Orchestrator) scrape(ctx context.Context, articles []models.Article) int {
	if o.reader == nil {
		return 0
	}
	scraped := 0
	for i := range articles {
		text, err := o.reader.Extract(ctx, articles[i].Link)
		if err != nil {
			o.logger.Printf("scrape %s: %v (falling back to snippet)", articles[i].Link, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			articles[i].Content = text
			scraped++
		}
	}
	return scraped
}

// embedChunks fans batches out across bounded workers. A failed batch only
// skips its own chunks; completion order does not affect the counts.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []models.Chunk, byArticle map[string]models.Article) ([]models.VectorRecord, int) {
	var (
		mu      sync.Mutex
		records []models.VectorRecord
		skipped int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	for start := 0; start < len(chunks); start += o.opts.BatchSize {
		end := min(start+o.opts.BatchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, ch := range batch {
				texts[i] = ch.Text
			}
			vecs, err := o.embedder.CreateEmbedding(gctx, texts)
			if err != nil || len(vecs) != len(batch) {
				mu.Lock()
				skipped += len(batch)
				mu.Unlock()
				o.logger.Printf("embed batch of %d failed: %v", len(batch), err)
				return nil // a failed batch never aborts the stage
			}
			batchRecords := make([]models.VectorRecord, len(batch))
			for i, ch := range batch {
				a := byArticle[ch.ArticleID]
				batchRecords[i] = models.VectorRecord{
					ChunkID:   ch.ID,
					Embedding: vecs[i],
					Metadata: models.VectorMetadata{
						SessionID:   ch.SessionID,
						SourceName:  a.SourceName,
						ArticleID:   ch.ArticleID,
						PublishedAt: a.PublishedAt,
						Title:       a.Title,
						Link:        a.Link,
						Text:        truncate(ch.Text, o.opts.MetadataText),
					},
				}
			}
			mu.Lock()
			records = append(records, batchRecords...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return records, skipped
}

// writeArtifact persists a stage artifact and appends its path to the session
// manifest before the run advances.
func (o *Orchestrator) writeArtifact(ctx context.Context, sessionID, name string, v interface{}, sess *models.Session) error {
	path, err := o.artifacts.WriteJSON(sessionID, name, v)
	if err != nil {
		return fmt.Errorf("write %s artifact: %w", name, err)
	}
	updated, err := o.registry.Update(ctx, sessionID, func(s *models.Session) {
		s.ArtifactFiles = append(s.ArtifactFiles, path)
	})
	if err != nil {
		return fmt.Errorf("record %s artifact: %w", name, err)
	}
	*sess = updated
	o.writeManifest(ctx, sessionID)
	return nil
}

// writeManifest keeps session_<id>.json current and listed among the
// session's own artifacts.
func (o *Orchestrator) writeManifest(ctx context.Context, sessionID string) {
	sess, err := o.registry.Get(ctx, sessionID)
	if err != nil {
		return
	}
	manifestPath, err := o.artifacts.WriteManifest(sessionID, sess)
	if err != nil {
		o.logger.Printf("session %s: write manifest: %v", sessionID, err)
		return
	}
	for _, p := range sess.ArtifactFiles {
		if p == manifestPath {
			return
		}
	}
	_, _ = o.registry.Update(ctx, sessionID, func(s *models.Session) {
		s.ArtifactFiles = append(s.ArtifactFiles, manifestPath)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
