package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/session"
)

// notReadyMessage is the user-facing apology when the knowledge base or
// concept catalog is unavailable. Deliberately not an opaque 500.
const notReadyMessage = "The recommendation service is still warming up or its knowledge base is unavailable. Please try again later."

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Analyzer:  true,
		Knowledge: s.recsvc != nil && s.recsvc.Ready(),
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RequirementsText == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requirements_text field is required")
	}

	analysis, err := s.analyzer.Analyze(req.RequirementsText, req.Context)
	if err != nil {
		s.logger.Error("analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
	}
	s.metrics.analyses.Inc()

	if req.SessionID != "" {
		if _, ok := s.sessions.Get(req.SessionID); !ok {
			return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
		}
		s.sessions.AddMessage(req.SessionID, session.RoleUser, req.RequirementsText, nil)
		analysis = s.sessions.MergeWithContext(req.SessionID, analysis)
		s.sessions.RecordAnalysis(req.SessionID, analysis)
		s.sessions.AddMessage(req.SessionID, session.RoleAssistant, analysis.Summary, nil)
	}

	return c.JSON(http.StatusOK, AnalyzeResponse{Analysis: analysis, SessionID: req.SessionID})
}

func (s *Server) handleRecommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid recommend request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RequirementsText == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requirements_text field is required")
	}
	if s.recsvc == nil || !s.recsvc.Ready() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, notReadyMessage)
	}

	analysis, err := s.analyzer.Analyze(req.RequirementsText, req.Context)
	if err != nil {
		s.logger.Error("analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
	}
	s.metrics.analyses.Inc()

	if req.SessionID != "" {
		if _, ok := s.sessions.Get(req.SessionID); !ok {
			return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
		}
		s.sessions.AddMessage(req.SessionID, session.RoleUser, req.RequirementsText, nil)
		analysis = s.sessions.MergeWithContext(req.SessionID, analysis)
		s.sessions.RecordAnalysis(req.SessionID, analysis)
	}

	rec, err := s.recsvc.Recommend(c.Request().Context(), analysis)
	if err != nil {
		if errors.Is(err, recommend.ErrNotInitialized) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, notReadyMessage)
		}
		s.logger.Error("recommendation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "recommendation failed")
	}
	s.metrics.recommends.Inc()

	if req.SessionID != "" {
		s.sessions.RecordRecommendation(req.SessionID, rec)
		summary := "No recommendation possible with the current knowledge base."
		if rec.TopChoiceStack != nil {
			summary = "Recommended pattern: " + rec.TopChoiceStack.Pattern
		}
		s.sessions.AddMessage(req.SessionID, session.RoleAssistant, summary, nil)
	}

	return c.JSON(http.StatusOK, RecommendResponse{
		Analysis:       analysis,
		Recommendation: rec,
		SessionID:      req.SessionID,
	})
}

func (s *Server) handleValidate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Analysis == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "analysis field is required")
	}
	result := recommend.ValidateNarrative(req.Analysis, req.RecommendationText)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id := s.sessions.Create(req.UserID)
	sess, _ := s.sessions.Get(id)
	return c.JSON(http.StatusCreated, CreateSessionResponse{SessionID: id, CreatedAt: sess.CreatedAt})
}

func (s *Server) handleListSessions(c echo.Context) error {
	ids := s.sessions.List()
	return c.JSON(http.StatusOK, ListSessionsResponse{ActiveSessions: ids, Count: len(ids)})
}

func (s *Server) handleAddMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role != session.RoleUser && req.Role != session.RoleAssistant {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be user or assistant")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}
	if !s.sessions.AddMessage(c.Param("id"), req.Role, req.Content, req.Metadata) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleCleanupSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, CleanupResponse{ExpiredSessionsRemoved: s.sessions.CleanupExpired()})
}

func (s *Server) handleGetSession(c echo.Context) error {
	summary, ok := s.sessions.Summarize(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if !s.sessions.Delete(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

func (s *Server) handleSessionHistory(c echo.Context) error {
	lastN := 0
	if raw := c.QueryParam("last_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "last_n must be a non-negative integer")
		}
		lastN = n
	}
	messages, ok := s.sessions.History(c.Param("id"), lastN)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, HistoryResponse{Messages: messages})
}

func (s *Server) handleSetConstraint(c echo.Context) error {
	var req ConstraintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Key == "" || req.Value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key and value fields are required")
	}
	if !s.sessions.SetPersistentConstraint(c.Param("id"), req.Key, req.Value) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleAddPreference(c echo.Context) error {
	var req PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Technology == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "technology field is required")
	}
	if !s.sessions.AddTechnologyPreference(c.Param("id"), req.Technology) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleAddClarification(c echo.Context) error {
	var req ClarificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}
	if !s.sessions.AddPendingClarification(c.Param("id"), req.Question) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleResolveClarification(c echo.Context) error {
	var req ClarificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}
	if !s.sessions.ResolveClarification(c.Param("id"), req.Question, req.Answer) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}
