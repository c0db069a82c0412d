package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Sweeper periodically runs Cleanup("all") so vectors whose owning session
// was never cleaned (crashed process, abandoned caller) are eventually
// reclaimed. Disabled unless a schedule is configured.
type Sweeper struct {
	engine   *Engine
	schedule *cronexpr.Expression
	logger   *log.Logger
}

// NewSweeper parses the cron schedule. An empty schedule returns a nil
// Sweeper, which Run treats as disabled.
func NewSweeper(engine *Engine, schedule string) (*Sweeper, error) {
	if schedule == "" {
		return nil, nil
	}
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		engine:   engine,
		schedule: expr,
		logger:   log.New(log.Writer(), "[SWEEP] ", log.LstdFlags),
	}, nil
}

// Run blocks until ctx is done, sweeping at each scheduled time.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	for {
		next := s.schedule.Next(time.Now())
		if next.IsZero() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}
		result, err := s.engine.Cleanup(ctx, "all", true)
		if err != nil {
			s.logger.Printf("sweep failed: %v", err)
			continue
		}
		s.logger.Printf("sweep: %d files, %d vectors", result.Folder.DeletedCount, result.Vector.VectorsDeleted)
	}
}
