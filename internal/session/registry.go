// Package session tracks active pipeline runs and their resource manifests.
package session

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/postpilot/config"
	"github.com/mohammad-safakhou/postpilot/models"
)

// Registry stores sessions created by the orchestrator and read by cleanup.
// Update applies its mutation atomically with respect to other Updates on the
// same session.
type Registry interface {
	Create(ctx context.Context, sess models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Update(ctx context.Context, id string, mutate func(*models.Session)) (models.Session, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Session, error)
}

// NewRegistry builds the configured backend.
func NewRegistry(cfg config.SessionConfig) (Registry, error) {
	switch cfg.Backend {
	case "inmemory":
		return NewInMemoryRegistry(), nil
	case "redis":
		return NewRedisRegistry(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
