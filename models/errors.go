package models

import "errors"

// Failure taxonomy. Every run or cleanup failure surfaced to a caller wraps
// exactly one of these sentinels; the HTTP layer maps them to stable codes.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNoArticlesFound     = errors.New("no articles found for query")
	ErrEmbeddingExhausted  = errors.New("all chunk embeddings failed")
	ErrStoreUnavailable    = errors.New("vector store unavailable")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrGenerationError     = errors.New("generation failed")
	ErrFetchUnavailable    = errors.New("fetch upstream unavailable")
	ErrSessionBusy         = errors.New("session has not reached a terminal state")
	ErrCleanupNotConfirmed = errors.New("cleanup requires confirm=true")
	ErrSessionNotFound     = errors.New("session not found")
)

// ErrorCode returns the stable taxonomy code for err, or "InternalError" when
// the error is outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, ErrNoArticlesFound):
		return "NoArticlesFound"
	case errors.Is(err, ErrEmbeddingExhausted):
		return "EmbeddingExhausted"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	case errors.Is(err, ErrDimensionMismatch):
		return "DimensionMismatch"
	case errors.Is(err, ErrGenerationError):
		return "GenerationError"
	case errors.Is(err, ErrFetchUnavailable):
		return "FetchUnavailable"
	case errors.Is(err, ErrSessionBusy):
		return "SessionBusy"
	case errors.Is(err, ErrCleanupNotConfirmed):
		return "CleanupNotConfirmed"
	case errors.Is(err, ErrSessionNotFound):
		return "SessionNotFound"
	default:
		return "InternalError"
	}
}
