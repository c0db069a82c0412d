package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mohammad-safakhou/postpilot/models"
)

// ChromemStore persists vectors with chromem-go so a restarted process can
// still reach leaked session vectors through metadata filters.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dimension  int
}

// NewChromemStore opens (or creates) a persistent collection. An empty
// persistPath keeps the DB in memory, which is what the tests use.
func NewChromemStore(persistPath, collection string, dimension int) (*ChromemStore, error) {
	if collection == "" {
		collection = "news-chunks"
	}
	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "chromem.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("open persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	col, err := db.GetOrCreateCollection(collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collection, err)
	}
	return &ChromemStore{db: db, collection: col, name: collection, dimension: dimension}, nil
}

// noEmbed exists because chromem requires an embedding func even though every
// document arrives with a precomputed embedding.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings are computed upstream")
}

func (s *ChromemStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	for _, rec := range records {
		if s.dimension == 0 {
			s.dimension = len(rec.Embedding)
		}
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s has dimension %d, index expects %d: %w",
				rec.ChunkID, len(rec.Embedding), s.dimension, models.ErrDimensionMismatch)
		}
	}
	for _, rec := range records {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:        rec.ChunkID,
			Embedding: rec.Embedding,
			Content:   rec.Metadata.Text,
			Metadata:  encodeMetadata(rec.Metadata),
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", rec.ChunkID, err)
		}
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, embedding []float32, topK int, f Filter) ([]models.Match, error) {
	if topK <= 0 || s.collection.Count() == 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection; over-fetch within
	// that bound so source-list filtering still has candidates to drop.
	n := topK * 4
	if max := s.collection.Count(); n > max {
		n = max
	}
	var where map[string]string
	if f.SessionID != "" {
		where = map[string]string{"session_id": f.SessionID}
	}
	results, err := s.collection.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	matches := make([]models.Match, 0, len(results))
	for _, r := range results {
		md := decodeMetadata(r.Metadata, r.Content)
		if !f.Matches(md) {
			continue
		}
		matches = append(matches, models.Match{
			Record: models.VectorRecord{ChunkID: r.ID, Embedding: r.Embedding, Metadata: md},
			Score:  float64(r.Similarity),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.Metadata.PublishedAt.After(matches[j].Record.Metadata.PublishedAt)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *ChromemStore) DeleteByFilter(ctx context.Context, f Filter) (int, error) {
	before := s.collection.Count()
	if before == 0 {
		return 0, nil
	}
	switch {
	case f.Empty():
		// chromem refuses a delete without a predicate; dropping and
		// recreating the collection is the whole-store delete.
		if err := s.db.DeleteCollection(s.name); err != nil {
			return 0, fmt.Errorf("delete collection: %w", err)
		}
		col, err := s.db.GetOrCreateCollection(s.name, nil, noEmbed)
		if err != nil {
			return 0, fmt.Errorf("recreate collection: %w", err)
		}
		s.collection = col
		return before, nil
	case len(f.ExcludeSources) > 0:
		return 0, fmt.Errorf("chromem backend cannot delete by source exclusion")
	case len(f.IncludeSources) > 0:
		for _, src := range f.IncludeSources {
			where := map[string]string{"source_name": src}
			if f.SessionID != "" {
				where["session_id"] = f.SessionID
			}
			if err := s.collection.Delete(ctx, where, nil); err != nil {
				return before - s.collection.Count(), fmt.Errorf("delete source %s: %w", src, err)
			}
		}
		return before - s.collection.Count(), nil
	default:
		where := map[string]string{"session_id": f.SessionID}
		if err := s.collection.Delete(ctx, where, nil); err != nil {
			return 0, fmt.Errorf("delete session %s: %w", f.SessionID, err)
		}
		return before - s.collection.Count(), nil
	}
}

func (s *ChromemStore) Stats(context.Context) (StoreStats, error) {
	return StoreStats{TotalVectors: s.collection.Count(), Dimension: s.dimension}, nil
}

func encodeMetadata(md models.VectorMetadata) map[string]string {
	return map[string]string{
		"session_id":   md.SessionID,
		"source_name":  md.SourceName,
		"article_id":   md.ArticleID,
		"published_at": md.PublishedAt.UTC().Format(time.RFC3339),
		"title":        md.Title,
		"link":         md.Link,
	}
}

func decodeMetadata(m map[string]string, content string) models.VectorMetadata {
	published, _ := time.Parse(time.RFC3339, m["published_at"])
	return models.VectorMetadata{
		SessionID:   m["session_id"],
		SourceName:  m["source_name"],
		ArticleID:   m["article_id"],
		PublishedAt: published,
		Title:       m["title"],
		Link:        m["link"],
		Text:        content,
	}
}
