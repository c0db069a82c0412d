package models

import (
	"fmt"
	"time"
)

// Article is a single news item as returned by the fetch adapter. Records are
// validated at the adapter boundary; anything past it carries these fields.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Snippet     string    `json:"snippet"`
	Content     string    `json:"content,omitempty"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
}

// Text returns the best available body for chunking: scraped content when the
// reader succeeded, the feed snippet otherwise.
func (a Article) Text() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Snippet
}

// Chunk is a bounded slice of one article's text, the unit of embedding and
// retrieval. IDs are deterministic: <articleID>#<index>.
type Chunk struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ArticleID string `json:"article_id"`
	Index     int    `json:"index"`
	SessionID string `json:"session_id"`
}

// ChunkID builds the deterministic id for a chunk of an article.
func ChunkID(articleID string, index int) string {
	return fmt.Sprintf("%s#%03d", articleID, index)
}

// VectorRecord is what the vector store keeps per chunk.
type VectorRecord struct {
	ChunkID   string
	Embedding []float32
	Metadata  VectorMetadata
}

// VectorMetadata tags a vector with its owning session and provenance. Text
// rides along (truncated) so retrieval needs no second lookup.
type VectorMetadata struct {
	SessionID   string
	SourceName  string
	ArticleID   string
	PublishedAt time.Time
	Title       string
	Link        string
	Text        string
}

// Match is a retrieval hit: the stored record plus its similarity score.
type Match struct {
	Record VectorRecord
	Score  float64
}

// ContextChunk is one retrieved passage handed to the generation capability.
type ContextChunk struct {
	Text       string
	SourceName string
	Title      string
}

// SourceRef is chunk provenance surfaced to the caller alongside results.
type SourceRef struct {
	ArticleID      string  `json:"article_id"`
	Title          string  `json:"title"`
	SourceName     string  `json:"source_name"`
	Link           string  `json:"link"`
	RelevanceScore float64 `json:"relevance_score"`
}

// PipelineStats counts what each stage produced. These are the numbers the
// test suite asserts against fixed fixtures.
type PipelineStats struct {
	ArticlesFetched int `json:"articles_fetched"`
	ArticlesScraped int `json:"articles_scraped"`
	ChunksCreated   int `json:"chunks_created"`
	ChunksSkipped   int `json:"chunks_skipped"`
	VectorsStored   int `json:"vectors_stored"`
	SearchResults   int `json:"search_results"`
}

// GenerateResult is the terminal output of one pipeline run.
type GenerateResult struct {
	SessionID string        `json:"session_id"`
	Query     string        `json:"query"`
	Results   []string      `json:"results"`
	Sources   []SourceRef   `json:"sources"`
	Stats     PipelineStats `json:"pipeline_stats"`
}

// FolderOutcome reports the filesystem half of a cleanup.
type FolderOutcome struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedPaths []string `json:"deleted_paths"`
	Errors       []string `json:"errors"`
}

// VectorOutcome reports the vector-store half of a cleanup.
type VectorOutcome struct {
	VectorsDeleted int    `json:"vectors_deleted"`
	VectorsBefore  int    `json:"vectors_before"`
	VectorsAfter   int    `json:"vectors_after"`
	Error          string `json:"error,omitempty"`
}

// CleanupScopeAll is the sentinel scope meaning every session's resources.
const CleanupScopeAll = "all"

// CleanupResult always carries both halves, even when one subsystem was
// unreachable, so a caller can retry narrowly.
type CleanupResult struct {
	Scope     string        `json:"scope"`
	Folder    FolderOutcome `json:"folder_outcome"`
	Vector    VectorOutcome `json:"vector_outcome"`
	Timestamp time.Time     `json:"timestamp"`
}
