package vectorstore

import (
	"fmt"

	"github.com/mohammad-safakhou/postpilot/config"
)

// New builds the configured backend.
func New(cfg config.VectorConfig, dimension int) (Gateway, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(dimension), nil
	case "chromem":
		return NewChromemStore(cfg.PersistPath, cfg.Collection, dimension)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}
