package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies what a session is for.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindStory        Kind = "story"
	KindPlayback     Kind = "playback"
)

// Session is one bounded audio interaction between a child and the toy.
// A session is in the active set exactly while EndedAt is nil.
type Session struct {
	ID             string            `json:"id"`
	SubjectID      string            `json:"subject_id"`
	Kind           Kind              `json:"kind"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	RecordingCount int               `json:"recording_count"`
	TotalDuration  time.Duration     `json:"total_duration"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func (s *Session) clone() *Session {
	cp := *s
	if s.Metadata != nil {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// Persister receives ended sessions for audit/history storage. Calls are
// fire-and-forget: a persistence failure never keeps a session in the
// active set.
type Persister interface {
	PersistSession(ctx context.Context, s *Session) error
}

// Config tunes the manager.
type Config struct {
	// MaxActive is the concurrency ceiling. Starting a session at the
	// ceiling evicts the oldest active session instead of failing.
	MaxActive int `yaml:"max_active" json:"max_active"`

	// IdleTimeout ends sessions with no activity for this long.
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// SweepInterval is how often the background loop checks for idle
	// sessions.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`

	// OnSessionStart fires after a session enters the active set.
	// OnSessionEnd fires for every normal or evicted end. OnSessionTimeout
	// fires instead of it for sweep-expired sessions. All receive a
	// snapshot and run outside the manager lock.
	OnSessionStart   func(*Session) `yaml:"-" json:"-"`
	OnSessionEnd     func(*Session) `yaml:"-" json:"-"`
	OnSessionTimeout func(*Session) `yaml:"-" json:"-"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxActive:     50,
		IdleTimeout:   5 * time.Minute,
		SweepInterval: 30 * time.Second,
	}
}

// Manager tracks the active audio sessions, enforces the concurrency
// ceiling, and expires idle sessions. One mutex guards the active map so
// Start, End, and the sweep never race on the same session.
type Manager struct {
	cfg       Config
	persister Persister
	logger    *zap.Logger

	mu     sync.Mutex
	active map[string]*Session
}

// NewManager creates a Manager. persister may be nil.
func NewManager(cfg Config, persister Persister, logger *zap.Logger) *Manager {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = DefaultConfig().MaxActive
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Manager{
		cfg:       cfg,
		persister: persister,
		logger:    logger.With(zap.String("component", "session_manager")),
		active:    make(map[string]*Session),
	}
}

// Start opens a new session and returns its snapshot. It never fails on
// the concurrency ceiling: when the active count is already at MaxActive
// the oldest active session is force-ended first, so newer interactions
// are never rejected.
func (m *Manager) Start(subjectID string, kind Kind) *Session {
	now := time.Now()
	s := &Session{
		ID:             uuid.NewString(),
		SubjectID:      subjectID,
		Kind:           kind,
		StartedAt:      now,
		LastActivityAt: now,
	}

	var evicted *Session
	m.mu.Lock()
	if len(m.active) >= m.cfg.MaxActive {
		evicted = m.endLocked(m.oldestLocked().ID, now)
	}
	m.active[s.ID] = s
	snapshot := s.clone()
	m.mu.Unlock()

	if evicted != nil {
		m.logger.Info("session evicted at concurrency ceiling",
			zap.String("session_id", evicted.ID),
			zap.String("subject_id", evicted.SubjectID),
			zap.Int("ceiling", m.cfg.MaxActive),
		)
		m.finishSession(evicted, false)
	}

	if m.cfg.OnSessionStart != nil {
		m.cfg.OnSessionStart(snapshot)
	}

	m.logger.Debug("session started",
		zap.String("session_id", s.ID),
		zap.String("subject_id", subjectID),
		zap.String("kind", string(kind)),
	)
	return snapshot
}

// End closes a session. Idempotent: returns false when the id is not in
// the active set.
func (m *Manager) End(sessionID string) bool {
	m.mu.Lock()
	ended := m.endLocked(sessionID, time.Now())
	m.mu.Unlock()

	if ended == nil {
		return false
	}
	m.logger.Debug("session ended",
		zap.String("session_id", ended.ID),
		zap.Duration("total_duration", ended.TotalDuration),
		zap.Int("recordings", ended.RecordingCount),
	)
	m.finishSession(ended, false)
	return true
}

// Touch refreshes a session's activity timestamp.
func (m *Manager) Touch(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return false
	}
	s.LastActivityAt = time.Now()
	return true
}

// RecordRecording accounts one recording event: bumps the counter, adds
// its duration, and refreshes activity.
func (m *Manager) RecordRecording(sessionID string, duration time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return false
	}
	s.RecordingCount++
	s.TotalDuration += duration
	s.LastActivityAt = time.Now()
	return true
}

// SetMetadata attaches a key/value pair to an active session.
func (m *Manager) SetMetadata(sessionID, key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return false
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
	return true
}

// Get returns a snapshot of an active session.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Active returns snapshots of every active session.
func (m *Manager) Active() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, s.clone())
	}
	return out
}

// ActiveCount returns the number of active sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// SweepTimeouts ends every session idle longer than IdleTimeout and
// returns the expired ids. Expired sessions fire the timeout callback,
// not the normal end callback.
func (m *Manager) SweepTimeouts() []string {
	now := time.Now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.active {
		if now.Sub(s.LastActivityAt) > m.cfg.IdleTimeout {
			if ended := m.endLocked(id, now); ended != nil {
				expired = append(expired, ended)
			}
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		ids = append(ids, s.ID)
		m.logger.Info("session expired by idle timeout",
			zap.String("session_id", s.ID),
			zap.String("subject_id", s.SubjectID),
			zap.Duration("idle_timeout", m.cfg.IdleTimeout),
		)
		m.finishSession(s, true)
	}
	return ids
}

// Run drives the periodic timeout sweep until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.logger.Info("session sweep loop started",
		zap.Duration("interval", m.cfg.SweepInterval),
		zap.Duration("idle_timeout", m.cfg.IdleTimeout),
	)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session sweep loop stopped")
			return
		case <-ticker.C:
			m.SweepTimeouts()
		}
	}
}

// endLocked removes a session from the active set and stamps EndedAt.
// Caller holds m.mu. Returns nil when the id is not active.
func (m *Manager) endLocked(sessionID string, now time.Time) *Session {
	s, ok := m.active[sessionID]
	if !ok {
		return nil
	}
	delete(m.active, sessionID)
	t := now
	s.EndedAt = &t
	return s
}

// oldestLocked returns the active session with the earliest StartedAt.
// Caller holds m.mu and guarantees the set is non-empty.
func (m *Manager) oldestLocked() *Session {
	var oldest *Session
	for _, s := range m.active {
		if oldest == nil || s.StartedAt.Before(oldest.StartedAt) {
			oldest = s
		}
	}
	return oldest
}

// finishSession runs the end-of-life side effects outside the lock:
// persistence (fire-and-forget) and the end or timeout callback.
func (m *Manager) finishSession(s *Session, timedOut bool) {
	if timedOut {
		if s.Metadata == nil {
			s.Metadata = make(map[string]string, 1)
		}
		s.Metadata["ended_by"] = "timeout"
	}

	if m.persister != nil {
		go func(snapshot *Session) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.persister.PersistSession(ctx, snapshot); err != nil {
				m.logger.Warn("session persistence failed",
					zap.String("session_id", snapshot.ID),
					zap.Error(err),
				)
			}
		}(s.clone())
	}

	if timedOut {
		if m.cfg.OnSessionTimeout != nil {
			m.cfg.OnSessionTimeout(s.clone())
		}
		return
	}
	if m.cfg.OnSessionEnd != nil {
		m.cfg.OnSessionEnd(s.clone())
	}
}
