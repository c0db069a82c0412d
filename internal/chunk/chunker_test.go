package chunk

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/postpilot/models"
)

func TestSplitEmpty(t *testing.T) {
	c := New(100, 0)
	if got := c.Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(100, 0)
	got := c.Split("x")
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected single chunk, got %v", got)
	}
}

func TestSplitLossless(t *testing.T) {
	c := New(50, 0)
	inputs := []string{
		"a",
		strings.Repeat("word boundary test ", 40),
		"First sentence. Second sentence! Third one? " + strings.Repeat("tail", 30),
		"para one\n\npara two\n\n" + strings.Repeat("x", 200),
		strings.Repeat("z", 500), // no boundaries at all
	}
	for _, in := range inputs {
		chunks := c.Split(in)
		if strings.Join(chunks, "") != in {
			t.Fatalf("concatenation does not reproduce input for %q", in[:min(20, len(in))])
		}
		for i, ch := range chunks {
			if len(ch) > c.MaxLen {
				t.Fatalf("chunk %d exceeds cap: %d > %d", i, len(ch), c.MaxLen)
			}
			if ch == "" {
				t.Fatalf("empty chunk at %d", i)
			}
		}
	}
}

func TestSplitOverlapRemovalReconstructs(t *testing.T) {
	c := New(60, 10)
	in := strings.Repeat("sentence here. ", 30)
	chunks := c.Split(in)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		b.WriteString(ch[c.Overlap:])
	}
	if b.String() != in {
		t.Fatalf("overlap removal does not reconstruct input")
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c := New(40, 0)
	in := "Short first sentence. Then a somewhat longer second sentence follows here."
	chunks := c.Split(in)
	if !strings.HasSuffix(chunks[0], ". ") {
		t.Fatalf("expected first chunk to end at sentence boundary, got %q", chunks[0])
	}
}

func TestChunkArticleOrderAndIDs(t *testing.T) {
	c := New(30, 0)
	a := models.Article{ID: "art-1", Snippet: strings.Repeat("some words here. ", 10)}
	chunks := c.ChunkArticle(a, "sess-1")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Fatalf("chunk %d has index %d", i, ch.Index)
		}
		if ch.ID != models.ChunkID("art-1", i) {
			t.Fatalf("unexpected chunk id %q", ch.ID)
		}
		if ch.SessionID != "sess-1" || ch.ArticleID != "art-1" {
			t.Fatalf("chunk provenance wrong: %+v", ch)
		}
	}
}
