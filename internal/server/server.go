// Package server exposes the pipeline and cleanup engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/postpilot/config"
	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/chunk"
	"github.com/mohammad-safakhou/postpilot/internal/cleanup"
	"github.com/mohammad-safakhou/postpilot/internal/pipeline"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/news/newsapi"
	"github.com/mohammad-safakhou/postpilot/news/readability"
	"github.com/mohammad-safakhou/postpilot/provider"
)

// newEcho builds the router with the shared middleware and error handler.
func newEcho(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var body interface{} = map[string]interface{}{"error": err.Error()}
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				if m, ok := he.Message.(string); ok {
					body = map[string]interface{}{"error": m}
				} else {
					body = he.Message
				}
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, body)
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	h.Register(e.Group("/api"))
	return e
}

// Run wires the full service from config and blocks serving HTTP until ctx
// is cancelled.
func Run(ctx context.Context, cfg *config.Config, addr string) error {
	embedder, err := provider.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	generator, err := provider.NewGenerator(cfg.Generation)
	if err != nil {
		return err
	}
	if cfg.Fetch.APIKey == "" {
		return fmt.Errorf("fetch.api_key not configured (POSTPILOT_FETCH_API_KEY)")
	}
	fetcher := newsapi.NewClient(cfg.Fetch.APIKey, cfg.Fetch.Endpoint, cfg.Fetch.Timeout)

	var reader pipeline.Reader
	if cfg.Fetch.ScrapeBodies {
		reader = readability.NewReader(cfg.Fetch.Timeout, cfg.Fetch.MaxBodyBytes)
	}

	store, err := vectorstore.New(cfg.Vector, cfg.Embedding.Dimension)
	if err != nil {
		return err
	}
	registry, err := session.NewRegistry(cfg.Session)
	if err != nil {
		return err
	}
	artifacts, err := artifact.NewStore(cfg.Artifact.Root)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(
		fetcher, reader, embedder, generator, store, registry, artifacts,
		chunk.New(cfg.Chunking.MaxLen, cfg.Chunking.Overlap),
		pipeline.Options{
			Retries:   cfg.Vector.Retries,
			Backoff:   cfg.Vector.Backoff,
			BatchSize: cfg.Embedding.BatchSize,
			Workers:   cfg.Embedding.Workers,
		},
	)
	engine := cleanup.NewEngine(artifacts, store, registry)

	sweeper, err := cleanup.NewSweeper(engine, cfg.Cleanup.SweepSchedule)
	if err != nil {
		return err
	}
	go sweeper.Run(ctx)

	h := &Handler{
		Pipeline:  orch,
		Cleaner:   engine,
		Registry:  registry,
		Artifacts: artifacts,
		Logger:    log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	e := newEcho(h)

	if addr == "" {
		addr = cfg.Server.Address
	}
	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
