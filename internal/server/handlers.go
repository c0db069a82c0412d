package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/cleanup"
	"github.com/mohammad-safakhou/postpilot/internal/pipeline"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/models"
)

// Runner executes one generation pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (models.GenerateResult, error)
}

// Cleaner reclaims session resources and reports usage.
type Cleaner interface {
	Cleanup(ctx context.Context, scope string, confirm bool) (models.CleanupResult, error)
	Stats(ctx context.Context) (cleanup.FolderStats, vectorstore.StoreStats, error)
}

// Handler serves the API endpoints.
type Handler struct {
	Pipeline  Runner
	Cleaner   Cleaner
	Registry  session.Registry
	Artifacts *artifact.Store
	Logger    *log.Logger
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/generate", h.generate)
	g.POST("/cleanup", h.cleanup)
	g.GET("/stats", h.stats)
	g.GET("/sessions", h.sessions)
}

type generateRequest struct {
	Query          string   `json:"query"`
	Count          int      `json:"count"`
	TopK           int      `json:"top_k"`
	FetchLimit     int      `json:"fetch_limit"`
	IncludeSources []string `json:"include_sources"`
	ExcludeSources []string `json:"exclude_sources"`
}

type generateResponse struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	models.GenerateResult
}

func (h *Handler) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.Pipeline.Run(c.Request().Context(), pipeline.Request{
		Query:          req.Query,
		Count:          req.Count,
		TopK:           req.TopK,
		FetchLimit:     req.FetchLimit,
		IncludeSources: req.IncludeSources,
		ExcludeSources: req.ExcludeSources,
	})
	if err != nil {
		// an empty result set is a valid outcome, not a transport failure
		if errors.Is(err, models.ErrNoArticlesFound) {
			return c.JSON(http.StatusOK, generateResponse{
				Success:        false,
				ErrorCode:      models.ErrorCode(err),
				Error:          err.Error(),
				GenerateResult: result,
			})
		}
		return echo.NewHTTPError(statusFor(err), generateResponse{
			Success:        false,
			ErrorCode:      models.ErrorCode(err),
			Error:          err.Error(),
			GenerateResult: result,
		})
	}
	return c.JSON(http.StatusOK, generateResponse{
		Success:        true,
		Count:          len(result.Results),
		GenerateResult: result,
	})
}

type cleanupRequest struct {
	Scope   string `json:"scope"`
	Confirm bool   `json:"confirm"`
}

func (h *Handler) cleanup(c echo.Context) error {
	var req cleanupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.Cleaner.Cleanup(c.Request().Context(), req.Scope, req.Confirm)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), map[string]string{
			"error":      err.Error(),
			"error_code": models.ErrorCode(err),
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) stats(c echo.Context) error {
	folder, store, err := h.Cleaner.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"artifact_folder": folder,
		"vector_store":    store,
	})
}

func (h *Handler) sessions(c echo.Context) error {
	sessions, err := h.Registry.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// after a restart the registry starts empty; surviving session manifests
	// on disk are still listable
	if len(sessions) == 0 && h.Artifacts != nil {
		_ = h.Artifacts.ReadManifests(func(data []byte) error {
			var sess models.Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return err
			}
			sessions = append(sessions, sess)
			return nil
		})
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		})
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// statusFor maps the error taxonomy onto HTTP codes. Retryable upstream
// failures surface as 5xx so callers know a retry may help; caller mistakes
// stay 4xx.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCleanupNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrFetchUnavailable),
		errors.Is(err, models.ErrEmbeddingExhausted),
		errors.Is(err, models.ErrGenerationError):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrDimensionMismatch):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
