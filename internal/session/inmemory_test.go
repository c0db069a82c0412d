package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/postpilot/models"
)

func TestRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()
	sess := models.Session{ID: "s1", Query: "transport", CreatedAt: time.Now(), State: models.SessionStateCreated}
	if err := r.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.Get(ctx, "s1")
	if err != nil || got.Query != "transport" {
		t.Fatalf("Get: %+v err=%v", got, err)
	}

	updated, err := r.Update(ctx, "s1", func(s *models.Session) {
		s.State = models.SessionStateDone
		s.ArtifactFiles = append(s.ArtifactFiles, "a.json")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.State != models.SessionStateDone || len(updated.ArtifactFiles) != 1 {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := r.Remove(ctx, "s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Get(ctx, "s1"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after remove, got %v", err)
	}
}

func TestRegistryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = r.Create(ctx, models.Session{ID: "old", CreatedAt: base})
	_ = r.Create(ctx, models.Session{ID: "new", CreatedAt: base.Add(time.Hour)})

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()
	_ = r.Create(ctx, models.Session{ID: "s1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Update(ctx, "s1", func(s *models.Session) { s.ArticleCount++ })
		}()
	}
	wg.Wait()

	got, _ := r.Get(ctx, "s1")
	if got.ArticleCount != 50 {
		t.Fatalf("lost updates: got %d", got.ArticleCount)
	}
}
