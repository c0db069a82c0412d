package models

import "time"

// SessionState tracks where a pipeline run is. Cleanup refuses to touch a
// session that has not reached a terminal state.
type SessionState string

const (
	SessionStateCreated SessionState = "created"
	SessionStateRunning SessionState = "running"
	SessionStateDone    SessionState = "done"
	SessionStateFailed  SessionState = "failed"
)

// Terminal reports whether the state is one cleanup may act on.
func (s SessionState) Terminal() bool {
	return s == SessionStateDone || s == SessionStateFailed
}

// Session is the resource manifest of one end-to-end pipeline run.
// ArtifactFiles is the exhaustive set of filesystem paths cleanup must
// attempt to remove; no path belongs to two sessions.
type Session struct {
	ID            string       `json:"session_id"`
	Query         string       `json:"query"`
	CreatedAt     time.Time    `json:"created_at"`
	ArticleCount  int          `json:"article_count"`
	ArtifactFiles []string     `json:"artifact_files"`
	State         SessionState `json:"state"`
	FailReason    string       `json:"fail_reason,omitempty"`
}
