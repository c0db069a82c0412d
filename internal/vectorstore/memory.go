package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mohammad-safakhou/postpilot/models"
)

// MemoryStore is a brute-force cosine-similarity store. It is the default
// backend and the reference for filter and ordering semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]models.VectorRecord
}

// NewMemoryStore returns an empty store. dimension may be zero, in which case
// it is fixed by the first upserted record.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		records:   make(map[string]models.VectorRecord),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
		s.records[rec.ChunkID] = rec
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, embedding []float32, topK int, f Filter) ([]models.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]models.Match, 0, len(s.records))
	for _, rec := range s.records {
		if !f.Matches(rec.Metadata) {
			continue
		}
		matches = append(matches, models.Match{Record: rec, Score: cosine(embedding, rec.Embedding)})
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

func (s *MemoryStore) DeleteByFilter(_ context.Context, f Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, rec := range s.records {
		if f.Matches(rec.Metadata) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Stats(_ context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{TotalVectors: len(s.records), Dimension: s.dimension}, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
