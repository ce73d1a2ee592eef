package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/dkb"
	"github.com/fyrsmithlabs/archd/internal/mapper"
	"github.com/fyrsmithlabs/archd/internal/nlp"
	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/requirements"
	"github.com/fyrsmithlabs/archd/internal/session"
)

type staticMapper struct {
	inputs mapper.Inputs
}

func (m *staticMapper) Map(context.Context, *requirements.Analysis) (mapper.Inputs, error) {
	return m.inputs, nil
}

type staticStore struct {
	ranked []dkb.RankedPattern
	stack  dkb.Stack
}

func (s *staticStore) RankPatterns(context.Context, mapper.Inputs) ([]dkb.RankedPattern, error) {
	return s.ranked, nil
}

func (s *staticStore) StackFor(context.Context, string) (dkb.Stack, error) {
	return s.stack, nil
}

func (s *staticStore) Close(context.Context) error { return nil }

func newTestServer(t *testing.T, recsvc *recommend.Service) (*Server, *session.Store) {
	t.Helper()

	annotator, err := nlp.NewAnnotator()
	require.NoError(t, err)
	analyzer := requirements.NewAnalyzer(annotator, requirements.Config{})
	sessions := session.NewStore(session.Config{}, zap.NewNop())

	srv, err := NewServer(analyzer, recsvc, sessions, prometheus.NewRegistry(), zap.NewNop(), Config{})
	require.NoError(t, err)
	return srv, sessions
}

func readySvc() *recommend.Service {
	store := &staticStore{
		ranked: []dkb.RankedPattern{{Pattern: "Microservices", FitScore: 2, BaseCost: 4}},
		stack:  dkb.Stack{"Database": {{Name: "PostgreSQL"}}},
	}
	return recommend.NewService(&staticMapper{inputs: mapper.Inputs{NFRs: []string{"Scalability"}}}, store, zap.NewNop())
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("knowledge base ready", func(t *testing.T) {
		srv, _ := newTestServer(t, readySvc())
		rec := doJSON(t, srv, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.Analyzer)
		assert.True(t, resp.Knowledge)
	})

	t.Run("knowledge base degraded", func(t *testing.T) {
		srv, _ := newTestServer(t, recommend.NewService(nil, nil, zap.NewNop()))
		rec := doJSON(t, srv, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Analyzer)
		assert.False(t, resp.Knowledge)
	})
}

func TestAnalyze(t *testing.T) {
	srv, sessions := newTestServer(t, readySvc())

	t.Run("happy path", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requirements/analyze",
			`{"requirements_text": "Users can book rides. The system must comply with GDPR."}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AnalyzeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Analysis)
		assert.NotEmpty(t, resp.Analysis.FunctionalRequirements)
		assert.NotEmpty(t, resp.Analysis.Constraints)
		assert.Empty(t, resp.SessionID)
	})

	t.Run("missing text", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requirements/analyze", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requirements/analyze", `{"requirements_text": 42}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requirements/analyze",
			`{"requirements_text": "Users can book rides.", "session_id": "ghost"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("with session context", func(t *testing.T) {
		id := sessions.Create("")
		require.True(t, sessions.SetPersistentConstraint(id, "cloud", "AWS"))

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/requirements/analyze",
			`{"requirements_text": "Users can book rides.", "session_id": "`+id+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AnalyzeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.SessionID)

		found := false
		for _, c := range resp.Analysis.Constraints {
			if c.Type == "persistent" && c.Value == "AWS" {
				found = true
			}
		}
		assert.True(t, found, "persistent constraint merged into response")

		sess, ok := sessions.Get(id)
		require.True(t, ok)
		assert.Len(t, sess.Messages, 2)
		assert.Len(t, sess.Analyses, 1)
	})
}

func TestRecommend(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		srv, _ := newTestServer(t, readySvc())
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/architecture/recommend",
			`{"requirements_text": "The system must scale to 10,000 users."}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RecommendResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Recommendation)
		require.NotNil(t, resp.Recommendation.TopChoiceStack)
		assert.Equal(t, "Microservices", resp.Recommendation.TopChoiceStack.Pattern)
	})

	t.Run("text required even with session", func(t *testing.T) {
		srv, sessions := newTestServer(t, readySvc())
		id := sessions.Create("")
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/architecture/recommend",
			`{"session_id": "`+id+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service unavailable", func(t *testing.T) {
		srv, _ := newTestServer(t, recommend.NewService(nil, nil, zap.NewNop()))
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/architecture/recommend",
			`{"requirements_text": "Anything at all."}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "try again later")
	})

	t.Run("nil service", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/architecture/recommend",
			`{"requirements_text": "Anything at all."}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("records into session", func(t *testing.T) {
		srv, sessions := newTestServer(t, readySvc())
		id := sessions.Create("")

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/architecture/recommend",
			`{"requirements_text": "Users can book rides.", "session_id": "`+id+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		sess, ok := sessions.Get(id)
		require.True(t, ok)
		require.Len(t, sess.Recommendations, 1)
		require.Len(t, sess.Messages, 2)
		assert.Equal(t, "Recommended pattern: Microservices", sess.Messages[1].Content)
	})
}

func TestValidate(t *testing.T) {
	srv, _ := newTestServer(t, readySvc())

	t.Run("requires analysis", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/recommendations/validate",
			`{"recommendation_text": "Use microservices."}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reports missing constraints", func(t *testing.T) {
		body := `{
			"analysis": {"constraints": [{"id": "C1", "text": "GDPR", "type": "compliance", "value": "GDPR"}]},
			"recommendation_text": "A narrative about microservices on a managed cloud, fifty characters plus."
		}`
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/recommendations/validate", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var result recommend.ValidationResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.Valid)
		require.Len(t, result.MissingConstraints, 1)
	})
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, readySvc())

	createBody := `{"user_id": "alice"}`
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)
	assert.False(t, created.CreatedAt.IsZero())
	id := created.SessionID

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/sessions", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ListSessionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.ActiveSessions, id)
		assert.Equal(t, len(resp.ActiveSessions), resp.Count)
	})

	t.Run("get summary", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var summary session.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, id, summary.SessionID)
		assert.Equal(t, "alice", summary.UserID)
	})

	t.Run("constraints and preferences", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/constraints",
			`{"key": "cloud", "value": "AWS"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/constraints", `{"key": "cloud"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/preferences",
			`{"technology": "PostgreSQL"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("clarification round trip", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/clarifications",
			`{"question": "Which region?"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/clarifications/resolve",
			`{"question": "Which region?", "answer": "eu-west-1"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
		var summary session.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Empty(t, summary.PendingClarifications)
	})

	t.Run("messages and history", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/messages",
			`{"role": "user", "content": "hello"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/messages",
			`{"role": "narrator", "content": "hello"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+id+"/history?last_n=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+id+"/history?last_n=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "hello", resp.Messages[0].Content)
	})

	t.Run("cleanup", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/cleanup", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CleanupResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Zero(t, resp.ExpiredSessionsRemoved)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodDelete, "/api/v1/sessions/"+id, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, http.MethodDelete, "/api/v1/sessions/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNewServer_RequiredDeps(t *testing.T) {
	sessions := session.NewStore(session.Config{}, zap.NewNop())

	_, err := NewServer(nil, nil, sessions, nil, zap.NewNop(), Config{})
	assert.Error(t, err)

	annotator, err := nlp.NewAnnotator()
	require.NoError(t, err)
	analyzer := requirements.NewAnalyzer(annotator, requirements.Config{})

	_, err = NewServer(analyzer, nil, nil, nil, zap.NewNop(), Config{})
	assert.Error(t, err)

	_, err = NewServer(analyzer, nil, sessions, nil, nil, Config{})
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, readySvc())

	doJSON(t, srv, http.MethodGet, "/health", "")
	rec := doJSON(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "archd_http_requests_total")
}
