// Package cleanup reclaims session-owned resources: artifact files and
// vector-store entries. The two halves always run independently and report
// independently, and every operation is safe to retry.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/models"
)

// Engine deletes artifact files and vectors for a session or for everything.
type Engine struct {
	artifacts *artifact.Store
	store     vectorstore.Gateway
	registry  session.Registry
	logger    *log.Logger
}

func NewEngine(artifacts *artifact.Store, store vectorstore.Gateway, registry session.Registry) *Engine {
	return &Engine{
		artifacts: artifacts,
		store:     store,
		registry:  registry,
		logger:    log.New(log.Writer(), "[CLEANUP] ", log.LstdFlags),
	}
}

// Cleanup removes everything the scope owns. scope is a session id or
// models.CleanupScopeAll. Without confirm it refuses before touching either
// subsystem. A session that has not reached a terminal state is busy; the
// registry entry is removed only after the attempt, so a failed half can be
// retried.
func (e *Engine) Cleanup(ctx context.Context, scope string, confirm bool) (models.CleanupResult, error) {
	if !confirm {
		return models.CleanupResult{}, models.ErrCleanupNotConfirmed
	}
	if scope == "" {
		return models.CleanupResult{}, fmt.Errorf("cleanup scope cannot be empty")
	}
	if scope == models.CleanupScopeAll {
		return e.cleanupAll(ctx)
	}
	return e.cleanupSession(ctx, scope)
}

func (e *Engine) cleanupAll(ctx context.Context) (models.CleanupResult, error) {
	result := models.CleanupResult{Scope: models.CleanupScopeAll, Timestamp: time.Now().UTC()}

	sessions, lerr := e.registry.List(ctx)
	if lerr != nil {
		e.logger.Printf("cleanup all: registry list failed: %v", lerr)
	}
	var running, terminal []string
	for _, s := range sessions {
		if s.State.Terminal() {
			terminal = append(terminal, s.ID)
		} else {
			running = append(running, s.ID)
		}
	}

	if len(running) == 0 {
		result.Folder = folderOutcome(e.artifacts.DeleteAll())
		result.Vector = e.deleteVectors(ctx, vectorstore.Filter{})
	} else {
		// an active run keeps its files and vectors; only terminal sessions
		// are reclaimed this round, leaked vectors wait for a sweep with
		// nothing running
		result.Folder = folderOutcome(e.artifacts.DeleteAllExcept(running))
		result.Vector = e.deleteSessionVectors(ctx, terminal)
	}

	// drop terminal entries once both halves came back clean; after a partial
	// failure the entries stay so a retry can still find them
	if len(result.Folder.Errors) == 0 && result.Vector.Error == "" {
		for _, id := range terminal {
			_ = e.registry.Remove(ctx, id)
		}
	}
	cleanupsTotal.WithLabelValues("all").Inc()
	e.logger.Printf("cleanup all: %d files, %d vectors", result.Folder.DeletedCount, result.Vector.VectorsDeleted)
	return result, nil
}

func (e *Engine) cleanupSession(ctx context.Context, id string) (models.CleanupResult, error) {
	result := models.CleanupResult{Scope: id, Timestamp: time.Now().UTC()}

	sess, err := e.registry.Get(ctx, id)
	known := err == nil
	if known && !sess.State.Terminal() {
		return models.CleanupResult{}, fmt.Errorf("session %s is %s: %w", id, sess.State, models.ErrSessionBusy)
	}
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		// registry unreachable: resources are still reclaimable through the
		// prefix scan and the metadata filter
		e.logger.Printf("cleanup %s: registry lookup failed: %v", id, err)
	}

	var out artifact.DeleteOutcome
	if known && len(sess.ArtifactFiles) > 0 {
		out = e.artifacts.DeletePaths(sess.ArtifactFiles)
	} else {
		out = e.artifacts.DeleteSessionFiles(id)
	}
	result.Folder = folderOutcome(out)

	result.Vector = e.deleteVectors(ctx, vectorstore.Filter{SessionID: id})

	// the entry goes away only once both halves fully succeeded; a retry after
	// a partial failure must still find the session and its manifest
	if known && len(result.Folder.Errors) == 0 && result.Vector.Error == "" {
		_ = e.registry.Remove(ctx, id)
	}
	cleanupsTotal.WithLabelValues("session").Inc()
	e.logger.Printf("cleanup %s: %d files (%d errors), %d vectors", id,
		result.Folder.DeletedCount, len(result.Folder.Errors), result.Vector.VectorsDeleted)
	return result, nil
}

// deleteVectors populates the vector half even when the store is unreachable.
// A failed Stats call around a successful delete is not a failed half: the
// counts are reconstructed and Error stays empty.
func (e *Engine) deleteVectors(ctx context.Context, f vectorstore.Filter) models.VectorOutcome {
	var out models.VectorOutcome
	beforeKnown := false
	if stats, err := e.store.Stats(ctx); err == nil {
		out.VectorsBefore = stats.TotalVectors
		beforeKnown = true
	}
	deleted, err := e.store.DeleteByFilter(ctx, f)
	if err != nil {
		out.Error = fmt.Sprintf("delete vectors: %v", err)
		out.VectorsAfter = out.VectorsBefore
		return out
	}
	out.VectorsDeleted = deleted
	if stats, err := e.store.Stats(ctx); err == nil {
		out.VectorsAfter = stats.TotalVectors
		if !beforeKnown {
			out.VectorsBefore = out.VectorsAfter + deleted
		}
	} else if beforeKnown {
		out.VectorsAfter = out.VectorsBefore - deleted
	} else {
		out.VectorsBefore = deleted
	}
	return out
}

// deleteSessionVectors reclaims one session filter at a time, used when an
// unscoped delete would take an active run's vectors with it.
func (e *Engine) deleteSessionVectors(ctx context.Context, ids []string) models.VectorOutcome {
	var out models.VectorOutcome
	beforeKnown := false
	if stats, err := e.store.Stats(ctx); err == nil {
		out.VectorsBefore = stats.TotalVectors
		beforeKnown = true
	}
	for _, id := range ids {
		deleted, err := e.store.DeleteByFilter(ctx, vectorstore.Filter{SessionID: id})
		if err != nil {
			out.Error = fmt.Sprintf("delete vectors for session %s: %v", id, err)
			break
		}
		out.VectorsDeleted += deleted
	}
	if stats, err := e.store.Stats(ctx); err == nil {
		out.VectorsAfter = stats.TotalVectors
		if !beforeKnown {
			out.VectorsBefore = out.VectorsAfter + out.VectorsDeleted
		}
	} else if beforeKnown {
		out.VectorsAfter = out.VectorsBefore - out.VectorsDeleted
	} else {
		out.VectorsBefore = out.VectorsDeleted
	}
	return out
}

// Stats reports the current folder and vector counts for the stats endpoint.
func (e *Engine) Stats(ctx context.Context) (FolderStats, vectorstore.StoreStats, error) {
	folder := FolderStats{Root: e.artifacts.Root(), FileCount: e.artifacts.FileCount()}
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return folder, vectorstore.StoreStats{}, fmt.Errorf("vector stats: %w", err)
	}
	return folder, stats, nil
}

// FolderStats describes the artifact folder.
type FolderStats struct {
	Root      string `json:"root"`
	FileCount int    `json:"file_count"`
}

func folderOutcome(out artifact.DeleteOutcome) models.FolderOutcome {
	fo := models.FolderOutcome{
		DeletedCount: out.DeletedCount,
		DeletedPaths: out.DeletedPaths,
		Errors:       out.Errors,
	}
	if fo.DeletedPaths == nil {
		fo.DeletedPaths = []string{}
	}
	if fo.Errors == nil {
		fo.Errors = []string{}
	}
	return fo
}
