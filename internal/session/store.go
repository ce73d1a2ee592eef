// Package session keeps per-conversation context in memory: message
// history, analysis and recommendation history, and preferences that
// persist across turns. Sessions expire after a period of inactivity
// and are never persisted beyond process lifetime.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/requirements"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AnalysisEntry is a timestamped stored analysis.
type AnalysisEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Analysis  *requirements.Analysis `json:"analysis"`
}

// RecommendationEntry is a timestamped stored recommendation.
type RecommendationEntry struct {
	Timestamp      time.Time                 `json:"timestamp"`
	Recommendation *recommend.Recommendation `json:"recommendation"`
}

// Session is one conversation's mutable context. All access goes
// through Store, which serializes writes.
type Session struct {
	ID          string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`

	Messages        []Message             `json:"messages"`
	Analyses        []AnalysisEntry       `json:"nlp_analysis_history"`
	Recommendations []RecommendationEntry `json:"architecture_recommendations"`

	PersistentConstraints map[string]string `json:"persistent_constraints"`
	Domain                string            `json:"domain,omitempty"`
	TechnologyPreferences []string          `json:"technology_preferences"`

	PendingClarifications []string          `json:"pending_clarifications"`
	ClarifiedItems        map[string]string `json:"clarified_items"`
}

// Summary is the lightweight session view returned by the API.
type Summary struct {
	SessionID             string            `json:"session_id"`
	UserID                string            `json:"user_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	LastUpdated           time.Time         `json:"last_updated"`
	MessageCount          int               `json:"message_count"`
	Domain                string            `json:"domain,omitempty"`
	AnalysisCount         int               `json:"analysis_count"`
	RecommendationCount   int               `json:"recommendation_count"`
	PersistentConstraints map[string]string `json:"persistent_constraints"`
	TechnologyPreferences []string          `json:"technology_preferences"`
	PendingClarifications []string          `json:"pending_clarifications"`
}

// Config tunes history retention and expiry.
type Config struct {
	// MaxHistory is the number of user/assistant message pairs kept.
	MaxHistory int
	// Timeout is the inactivity window after which a session expires.
	Timeout time.Duration
}

const (
	analysesKept        = 5
	recommendationsKept = 3
)

// Store holds all active sessions. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: map[string]*Session{},
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new session and returns its id.
func (s *Store) Create(userID string) string {
	now := s.now()
	sess := &Session{
		ID:                    uuid.NewString(),
		UserID:                userID,
		CreatedAt:             now,
		LastUpdated:           now,
		PersistentConstraints: map[string]string{},
		TechnologyPreferences: []string{},
		PendingClarifications: []string{},
		ClarifiedItems:        map[string]string{},
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess.ID
}

// get returns the live session or nil, evicting it if expired. Callers
// must hold the write lock.
func (s *Store) get(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.now().Sub(sess.LastUpdated) > s.cfg.Timeout {
		delete(s.sessions, id)
		s.logger.Debug("session expired", zap.String("session_id", id))
		return nil
	}
	return sess
}

// Get returns a snapshot of the session for read-only use, or false if
// it does not exist or has expired. The snapshot shares no mutable
// state with the store: callers may read it after the lock is released.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// snapshot copies the session's maps and slice headers so the result
// can outlive the store lock. Analyses and recommendations stay shared
// pointers; they are never mutated after being recorded.
func (sess *Session) snapshot() Session {
	out := *sess
	out.Messages = append([]Message(nil), sess.Messages...)
	out.Analyses = append([]AnalysisEntry(nil), sess.Analyses...)
	out.Recommendations = append([]RecommendationEntry(nil), sess.Recommendations...)
	out.PersistentConstraints = copyStringMap(sess.PersistentConstraints)
	out.TechnologyPreferences = append([]string(nil), sess.TechnologyPreferences...)
	out.PendingClarifications = append([]string(nil), sess.PendingClarifications...)
	out.ClarifiedItems = copyStringMap(sess.ClarifiedItems)
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddMessage appends a message, trimming history to the configured
// number of user/assistant pairs.
func (s *Store) AddMessage(id, role, content string, metadata map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}

	sess.Messages = append(sess.Messages, Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		Metadata:  metadata,
	})
	if max := s.cfg.MaxHistory * 2; len(sess.Messages) > max {
		sess.Messages = sess.Messages[len(sess.Messages)-max:]
	}
	sess.LastUpdated = s.now()
	return true
}

// RecordAnalysis stores an analysis, keeping the most recent five.
func (s *Store) RecordAnalysis(id string, analysis *requirements.Analysis) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}

	sess.Analyses = append(sess.Analyses, AnalysisEntry{Timestamp: s.now(), Analysis: analysis})
	if len(sess.Analyses) > analysesKept {
		sess.Analyses = sess.Analyses[len(sess.Analyses)-analysesKept:]
	}
	sess.LastUpdated = s.now()
	return true
}

// RecordRecommendation stores a recommendation, keeping the most
// recent three.
func (s *Store) RecordRecommendation(id string, rec *recommend.Recommendation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}

	sess.Recommendations = append(sess.Recommendations, RecommendationEntry{Timestamp: s.now(), Recommendation: rec})
	if len(sess.Recommendations) > recommendationsKept {
		sess.Recommendations = sess.Recommendations[len(sess.Recommendations)-recommendationsKept:]
	}
	sess.LastUpdated = s.now()
	return true
}

// SetPersistentConstraint records a constraint applied to all future
// queries in the session.
func (s *Store) SetPersistentConstraint(id, key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}
	sess.PersistentConstraints[key] = value
	sess.LastUpdated = s.now()
	return true
}

// SetDomain records the session's domain.
func (s *Store) SetDomain(id, domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}
	sess.Domain = domain
	sess.LastUpdated = s.now()
	return true
}

// AddTechnologyPreference records a preferred technology once.
func (s *Store) AddTechnologyPreference(id, technology string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}
	for _, t := range sess.TechnologyPreferences {
		if t == technology {
			return true
		}
	}
	sess.TechnologyPreferences = append(sess.TechnologyPreferences, technology)
	sess.LastUpdated = s.now()
	return true
}

// AddPendingClarification queues a question for the user once.
func (s *Store) AddPendingClarification(id, clarification string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}
	for _, c := range sess.PendingClarifications {
		if c == clarification {
			return true
		}
	}
	sess.PendingClarifications = append(sess.PendingClarifications, clarification)
	sess.LastUpdated = s.now()
	return true
}

// ResolveClarification records an answer and removes the question from
// the pending list.
func (s *Store) ResolveClarification(id, question, answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return false
	}
	sess.ClarifiedItems[question] = answer
	for i, c := range sess.PendingClarifications {
		if c == question {
			sess.PendingClarifications = append(sess.PendingClarifications[:i], sess.PendingClarifications[i+1:]...)
			break
		}
	}
	sess.LastUpdated = s.now()
	return true
}

// MergeWithContext folds the session's persistent constraints and
// technology preferences into a fresh analysis. The analysis is copied;
// the stored session state is not mutated. Missing sessions return the
// input unchanged.
func (s *Store) MergeWithContext(id string, analysis *requirements.Analysis) *requirements.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return analysis
	}

	merged := *analysis
	merged.Constraints = append([]requirements.Constraint{}, analysis.Constraints...)
	merged.TechnologiesMentioned = append([]string{}, analysis.TechnologiesMentioned...)

	keys := make([]string, 0, len(sess.PersistentConstraints))
	for k := range sess.PersistentConstraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := sess.PersistentConstraints[key]
		exists := false
		for _, c := range merged.Constraints {
			if c.Value == value {
				exists = true
				break
			}
		}
		if !exists {
			merged.Constraints = append(merged.Constraints, requirements.Constraint{
				ID:        fmt.Sprintf("PC%d", len(merged.Constraints)+1),
				Text:      fmt.Sprintf("Persistent constraint: %s = %s", key, value),
				Type:      "persistent",
				Value:     value,
				Mandatory: true,
			})
		}
	}

	for _, tech := range sess.TechnologyPreferences {
		present := false
		for _, t := range merged.TechnologiesMentioned {
			if t == tech {
				present = true
				break
			}
		}
		if !present {
			merged.TechnologiesMentioned = append(merged.TechnologiesMentioned, tech)
		}
	}

	return &merged
}

// History returns up to lastN messages (all when lastN <= 0).
func (s *Store) History(id string, lastN int) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return nil, false
	}
	messages := sess.Messages
	if lastN > 0 && len(messages) > lastN {
		messages = messages[len(messages)-lastN:]
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out, true
}

// Summarize returns the lightweight context view.
func (s *Store) Summarize(id string) (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess == nil {
		return Summary{}, false
	}
	return Summary{
		SessionID:             sess.ID,
		UserID:                sess.UserID,
		CreatedAt:             sess.CreatedAt,
		LastUpdated:           sess.LastUpdated,
		MessageCount:          len(sess.Messages),
		Domain:                sess.Domain,
		AnalysisCount:         len(sess.Analyses),
		RecommendationCount:   len(sess.Recommendations),
		PersistentConstraints: copyStringMap(sess.PersistentConstraints),
		TechnologyPreferences: append([]string(nil), sess.TechnologyPreferences...),
		PendingClarifications: append([]string(nil), sess.PendingClarifications...),
	}, true
}

// Delete removes a session. Returns false if it was not present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns all active session ids, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CleanupExpired evicts expired sessions and reports how many.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUpdated) > s.cfg.Timeout {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// RunJanitor evicts expired sessions on the given interval until the
// context is cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}
