// Package chunk splits article text into bounded pieces for embedding.
package chunk

import (
	"strings"

	"github.com/mohammad-safakhou/postpilot/models"
)

// Chunker splits text into pieces of at most MaxLen bytes, preferring
// paragraph then sentence boundaries over a hard cut. With Overlap=0 the
// concatenation of the pieces reproduces the input exactly.
type Chunker struct {
	MaxLen  int
	Overlap int
}

// New returns a Chunker, applying the defaults the original pipeline shipped
// with (1000-byte cap, no overlap) for out-of-range arguments.
func New(maxLen, overlap int) Chunker {
	if maxLen <= 0 {
		maxLen = 1000
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}
	return Chunker{MaxLen: maxLen, Overlap: overlap}
}

// Split cuts text into chunks. Empty text yields nil, text within the cap
// yields a single chunk.
func (c Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.MaxLen {
		return []string{text}
	}
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.MaxLen
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		cut := c.boundary(text, start, end)
		chunks = append(chunks, text[start:cut])
		next := cut - c.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// boundary picks the split point inside (start, limit]: the last paragraph
// break if any, else the last sentence end, else the last space, else the
// hard cap. Quality heuristic only; any cut is correct.
func (c Chunker) boundary(text string, start, limit int) int {
	window := text[start:limit]
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i + 2
	}
	best := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if i := strings.LastIndex(window, sep); i >= 0 && i+len(sep)-1 > best {
			best = i + len(sep) - 1
		}
	}
	if best > 0 {
		return start + best + 1
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return start + i + 1
	}
	return limit
}

// ChunkArticle splits an article's text and assigns deterministic ids while
// preserving document order.
func (c Chunker) ChunkArticle(a models.Article, sessionID string) []models.Chunk {
	parts := c.Split(a.Text())
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			ID:        models.ChunkID(a.ID, i),
			Text:      part,
			ArticleID: a.ID,
			Index:     i,
			SessionID: sessionID,
		})
	}
	return chunks
}
