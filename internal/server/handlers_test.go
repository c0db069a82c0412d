package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/chunk"
	"github.com/mohammad-safakhou/postpilot/internal/cleanup"
	"github.com/mohammad-safakhou/postpilot/internal/pipeline"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/models"
)

type fakeRunner struct {
	result models.GenerateResult
	err    error
	got    pipeline.Request
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (models.GenerateResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeCleaner struct {
	result models.CleanupResult
	err    error
}

func (f *fakeCleaner) Cleanup(context.Context, string, bool) (models.CleanupResult, error) {
	return f.result, f.err
}

func (f *fakeCleaner) Stats(context.Context) (cleanup.FolderStats, vectorstore.StoreStats, error) {
	return cleanup.FolderStats{Root: "news_data", FileCount: 2},
		vectorstore.StoreStats{TotalVectors: 7, Dimension: 3}, nil
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGenerateSuccess(t *testing.T) {
	runner := &fakeRunner{result: models.GenerateResult{
		SessionID: "abc12345",
		Query:     "ai",
		Results:   []string{"p1", "p2"},
		Stats:     models.PipelineStats{ArticlesFetched: 4},
	}}
	h := &Handler{Pipeline: runner}

	ctx, rec := newTestContext(http.MethodPost, "/api/generate", `{"query":"ai","count":2}`)
	if err := h.generate(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Results) != 2 || resp.SessionID != "abc12345" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if runner.got.Query != "ai" || runner.got.Count != 2 {
		t.Fatalf("request not passed through: %+v", runner.got)
	}
}

func TestGenerateNoArticlesIsNotATransportError(t *testing.T) {
	runner := &fakeRunner{
		result: models.GenerateResult{SessionID: "abc12345", Query: "obscure"},
		err:    models.ErrNoArticlesFound,
	}
	h := &Handler{Pipeline: runner}

	ctx, rec := newTestContext(http.MethodPost, "/api/generate", `{"query":"obscure"}`)
	if err := h.generate(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.ErrorCode != "NoArticlesFound" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateStoreUnavailableIs503(t *testing.T) {
	h := &Handler{Pipeline: &fakeRunner{err: models.ErrStoreUnavailable}}

	ctx, _ := newTestContext(http.MethodPost, "/api/generate", `{"query":"ai"}`)
	err := h.generate(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 HTTPError, got %v", err)
	}
}

func TestGenerateValidationErrorIs400(t *testing.T) {
	// the real orchestrator rejects out-of-range counts before any
	// capability is touched
	arts, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	orch := pipeline.NewOrchestrator(nil, nil, nil, nil, nil,
		session.NewInMemoryRegistry(), arts, chunk.New(1000, 0), pipeline.Options{})
	h := &Handler{Pipeline: orch}

	for _, body := range []string{
		`{"query":"ai","count":99}`,
		`{"query":"   "}`,
		`{"query":"ai","top_k":0,"fetch_limit":51}`,
	} {
		ctx, _ := newTestContext(http.MethodPost, "/api/generate", body)
		err := h.generate(ctx)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 HTTPError, got %v", body, err)
		}
	}
}

func TestCleanupWithoutConfirmIs400(t *testing.T) {
	h := &Handler{Cleaner: &fakeCleaner{err: models.ErrCleanupNotConfirmed}}

	ctx, _ := newTestContext(http.MethodPost, "/api/cleanup", `{"scope":"all"}`)
	err := h.cleanup(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestCleanupBusySessionIs409(t *testing.T) {
	h := &Handler{Cleaner: &fakeCleaner{err: models.ErrSessionBusy}}

	ctx, _ := newTestContext(http.MethodPost, "/api/cleanup", `{"scope":"abc12345","confirm":true}`)
	err := h.cleanup(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
}

func TestCleanupReturnsBothHalves(t *testing.T) {
	h := &Handler{Cleaner: &fakeCleaner{result: models.CleanupResult{
		Scope:  "abc12345",
		Folder: models.FolderOutcome{DeletedCount: 3, DeletedPaths: []string{"a", "b", "c"}, Errors: []string{}},
		Vector: models.VectorOutcome{VectorsDeleted: 9, VectorsBefore: 9, VectorsAfter: 0},
	}}}

	ctx, rec := newTestContext(http.MethodPost, "/api/cleanup", `{"scope":"abc12345","confirm":true}`)
	if err := h.cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp models.CleanupResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Folder.DeletedCount != 3 || resp.Vector.VectorsDeleted != 9 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSessionsList(t *testing.T) {
	reg := session.NewInMemoryRegistry()
	_ = reg.Create(context.Background(), models.Session{
		ID: "abc12345", Query: "ai", CreatedAt: time.Now(), State: models.SessionStateDone,
	})
	h := &Handler{Registry: reg}

	ctx, rec := newTestContext(http.MethodGet, "/api/sessions", "")
	if err := h.sessions(ctx); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	var resp struct {
		Sessions []models.Session `json:"sessions"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Sessions[0].ID != "abc12345" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSessionsFallBackToDiskManifests(t *testing.T) {
	arts, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	_, _ = arts.WriteManifest("abc12345", models.Session{
		ID: "abc12345", Query: "ai", CreatedAt: time.Now(), State: models.SessionStateFailed,
	})
	// empty registry, as after a restart
	h := &Handler{Registry: session.NewInMemoryRegistry(), Artifacts: arts}

	ctx, rec := newTestContext(http.MethodGet, "/api/sessions", "")
	if err := h.sessions(ctx); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	var resp struct {
		Sessions []models.Session `json:"sessions"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Sessions[0].ID != "abc12345" || resp.Sessions[0].State != models.SessionStateFailed {
		t.Fatalf("manifest not recovered: %+v", resp)
	}
}

func TestStats(t *testing.T) {
	h := &Handler{Cleaner: &fakeCleaner{}}

	ctx, rec := newTestContext(http.MethodGet, "/api/stats", "")
	if err := h.stats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	var resp struct {
		Folder cleanup.FolderStats    `json:"artifact_folder"`
		Store  vectorstore.StoreStats `json:"vector_store"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Folder.FileCount != 2 || resp.Store.TotalVectors != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
