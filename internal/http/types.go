package http

import (
	"time"

	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/requirements"
	"github.com/fyrsmithlabs/archd/internal/session"
)

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Analyzer  bool   `json:"analyzer_ready"`
	Knowledge bool   `json:"knowledge_base_ready"`
}

// AnalyzeRequest is the body for POST /api/v1/requirements/analyze.
type AnalyzeRequest struct {
	RequirementsText string `json:"requirements_text"`
	Context          string `json:"context,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
}

// AnalyzeResponse wraps the analysis result.
type AnalyzeResponse struct {
	Analysis  *requirements.Analysis `json:"analysis"`
	SessionID string                 `json:"session_id,omitempty"`
}

// RecommendRequest is the body for POST /api/v1/architecture/recommend.
type RecommendRequest struct {
	RequirementsText string `json:"requirements_text"`
	Context          string `json:"context,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
}

// RecommendResponse wraps the full pipeline output.
type RecommendResponse struct {
	Analysis       *requirements.Analysis    `json:"analysis"`
	Recommendation *recommend.Recommendation `json:"recommendation"`
	SessionID      string                    `json:"session_id,omitempty"`
}

// ValidateRequest is the body for POST /api/v1/recommendations/validate.
type ValidateRequest struct {
	Analysis           *requirements.Analysis `json:"analysis"`
	RecommendationText string                 `json:"recommendation_text"`
}

// CreateSessionRequest is the body for POST /api/v1/sessions.
type CreateSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// CreateSessionResponse returns the new session id.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListSessionsResponse is the body for GET /api/v1/sessions.
type ListSessionsResponse struct {
	ActiveSessions []string `json:"active_sessions"`
	Count          int      `json:"count"`
}

// MessageRequest appends a conversation message to a session.
type MessageRequest struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CleanupResponse is the body for POST /api/v1/sessions/cleanup.
type CleanupResponse struct {
	ExpiredSessionsRemoved int `json:"expired_sessions_removed"`
}

// HistoryResponse is the body for GET /api/v1/sessions/:id/history.
type HistoryResponse struct {
	Messages []session.Message `json:"messages"`
}

// ConstraintRequest sets a persistent constraint for a session.
type ConstraintRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PreferenceRequest records a technology preference for a session.
type PreferenceRequest struct {
	Technology string `json:"technology"`
}

// ClarificationRequest queues or resolves a clarification.
type ClarificationRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// StatusResponse is the generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}
