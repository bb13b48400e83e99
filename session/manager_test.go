package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPersister struct {
	mu       sync.Mutex
	sessions []*Session
	fail     bool
}

func (p *capturingPersister) PersistSession(_ context.Context, s *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("store down")
	}
	p.sessions = append(p.sessions, s)
	return nil
}

func (p *capturingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func TestManager_StartAndEnd(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, zap.NewNop())

	s := m.Start("child-1", KindConversation)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "child-1", s.SubjectID)
	assert.Nil(t, s.EndedAt)
	assert.Equal(t, 1, m.ActiveCount())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	assert.True(t, m.End(s.ID))
	assert.Equal(t, 0, m.ActiveCount())

	// idempotent
	assert.False(t, m.End(s.ID))
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
}

func TestManager_EndFiresCallbackAndPersists(t *testing.T) {
	persister := &capturingPersister{}
	var endedID atomic.Value

	cfg := DefaultConfig()
	cfg.OnSessionEnd = func(s *Session) { endedID.Store(s.ID) }
	m := NewManager(cfg, persister, zap.NewNop())

	s := m.Start("child-1", KindConversation)
	require.True(t, m.RecordRecording(s.ID, 2*time.Second))
	require.True(t, m.End(s.ID))

	assert.Equal(t, s.ID, endedID.Load())
	assert.Eventually(t, func() bool { return persister.count() == 1 }, time.Second, 10*time.Millisecond)

	persister.mu.Lock()
	stored := persister.sessions[0]
	persister.mu.Unlock()
	assert.NotNil(t, stored.EndedAt)
	assert.Equal(t, 1, stored.RecordingCount)
	assert.Equal(t, 2*time.Second, stored.TotalDuration)
}

func TestManager_PersistenceFailureDoesNotBlockRemoval(t *testing.T) {
	persister := &capturingPersister{fail: true}
	m := NewManager(DefaultConfig(), persister, zap.NewNop())

	s := m.Start("child-1", KindConversation)
	assert.True(t, m.End(s.ID))
	assert.Equal(t, 0, m.ActiveCount())
}

func TestManager_ConcurrencyCeilingEvictsOldest(t *testing.T) {
	var evicted []string
	var mu sync.Mutex

	cfg := DefaultConfig()
	cfg.MaxActive = 3
	cfg.OnSessionEnd = func(s *Session) {
		mu.Lock()
		evicted = append(evicted, s.ID)
		mu.Unlock()
	}
	m := NewManager(cfg, nil, zap.NewNop())

	first := m.Start("child-1", KindConversation)
	m.Start("child-2", KindConversation)
	m.Start("child-3", KindConversation)
	assert.Equal(t, 3, m.ActiveCount())

	// the fourth start succeeds and pushes out exactly the oldest
	fourth := m.Start("child-4", KindConversation)
	assert.Equal(t, 3, m.ActiveCount())

	mu.Lock()
	require.Len(t, evicted, 1)
	assert.Equal(t, first.ID, evicted[0])
	mu.Unlock()

	_, ok := m.Get(first.ID)
	assert.False(t, ok)
	_, ok = m.Get(fourth.ID)
	assert.True(t, ok)
}

func TestManager_CeilingNeverExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxActive = 5
	m := NewManager(cfg, nil, zap.NewNop())

	for i := 0; i < 20; i++ {
		m.Start("child", KindConversation)
		assert.LessOrEqual(t, m.ActiveCount(), 5)
	}
	assert.Equal(t, 5, m.ActiveCount())
}

func TestManager_TouchAndRecordRecording(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, zap.NewNop())

	s := m.Start("child-1", KindConversation)
	before, _ := m.Get(s.ID)

	time.Sleep(5 * time.Millisecond)
	require.True(t, m.Touch(s.ID))

	after, _ := m.Get(s.ID)
	assert.True(t, after.LastActivityAt.After(before.LastActivityAt))

	require.True(t, m.RecordRecording(s.ID, time.Second))
	require.True(t, m.RecordRecording(s.ID, 3*time.Second))
	got, _ := m.Get(s.ID)
	assert.Equal(t, 2, got.RecordingCount)
	assert.Equal(t, 4*time.Second, got.TotalDuration)

	assert.False(t, m.Touch("missing"))
	assert.False(t, m.RecordRecording("missing", time.Second))
}

func TestManager_SweepTimeouts(t *testing.T) {
	var timedOut, ended []string
	var mu sync.Mutex

	cfg := DefaultConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	cfg.OnSessionTimeout = func(s *Session) {
		mu.Lock()
		timedOut = append(timedOut, s.ID)
		mu.Unlock()
	}
	cfg.OnSessionEnd = func(s *Session) {
		mu.Lock()
		ended = append(ended, s.ID)
		mu.Unlock()
	}
	m := NewManager(cfg, nil, zap.NewNop())

	idle := m.Start("child-1", KindConversation)
	busy := m.Start("child-2", KindConversation)

	time.Sleep(30 * time.Millisecond)
	require.True(t, m.Touch(busy.ID))

	expired := m.SweepTimeouts()
	require.Len(t, expired, 1)
	assert.Equal(t, idle.ID, expired[0])
	assert.Equal(t, 1, m.ActiveCount())

	// the timeout callback fired, not the generic end callback
	mu.Lock()
	assert.Equal(t, []string{idle.ID}, timedOut)
	assert.Empty(t, ended)
	mu.Unlock()
}

func TestManager_StartFiresCallback(t *testing.T) {
	var started []string
	var mu sync.Mutex

	cfg := DefaultConfig()
	cfg.OnSessionStart = func(s *Session) {
		mu.Lock()
		started = append(started, s.ID)
		mu.Unlock()
	}
	m := NewManager(cfg, nil, zap.NewNop())

	a := m.Start("child-1", KindConversation)
	b := m.Start("child-2", KindStory)

	mu.Lock()
	assert.Equal(t, []string{a.ID, b.ID}, started)
	mu.Unlock()
}

func TestManager_TimeoutMarksEndedBy(t *testing.T) {
	persister := &capturingPersister{}

	cfg := DefaultConfig()
	cfg.IdleTimeout = 10 * time.Millisecond
	m := NewManager(cfg, persister, zap.NewNop())

	m.Start("child-1", KindConversation)
	time.Sleep(20 * time.Millisecond)

	require.Len(t, m.SweepTimeouts(), 1)
	assert.Eventually(t, func() bool { return persister.count() == 1 }, time.Second, 10*time.Millisecond)

	persister.mu.Lock()
	stored := persister.sessions[0]
	persister.mu.Unlock()
	assert.Equal(t, "timeout", stored.Metadata["ended_by"])
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SweepInterval = 10 * time.Millisecond
	cfg.IdleTimeout = 10 * time.Millisecond
	m := NewManager(cfg, nil, zap.NewNop())

	m.Start("child-1", KindConversation)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestManager_SetMetadata(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, zap.NewNop())

	s := m.Start("child-1", KindStory)
	require.True(t, m.SetMetadata(s.ID, "theme", "space"))

	got, _ := m.Get(s.ID)
	assert.Equal(t, "space", got.Metadata["theme"])

	// snapshot is detached from manager state
	got.Metadata["theme"] = "ocean"
	again, _ := m.Get(s.ID)
	assert.Equal(t, "space", again.Metadata["theme"])

	assert.False(t, m.SetMetadata("missing", "k", "v"))
}
