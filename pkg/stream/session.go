package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/killallgit/webbuilder/pkg/logger"
)

// OpenFunc opens the response body of one generation request.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Session is one in-flight stream. Its handler callbacks are serialized and
// stop for good once the session is cancelled.
type Session struct {
	ID string

	ctx    context.Context
	cancel context.CancelFunc
	open   OpenFunc
	target Handler

	// mu serializes delivery with Cancel.
	mu        sync.Mutex
	cancelled bool
	finished  bool
	body      io.ReadCloser

	done  chan struct{}
	stats Stats
	err   error
}

func newSession(parent context.Context, open OpenFunc, h Handler) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:     uuid.New().String(),
		ctx:    ctx,
		cancel: cancel,
		open:   open,
		target: h,
		done:   make(chan struct{}),
	}
}

// Cancel stops the session and releases its reader. After Cancel returns no
// callback of this session runs again. Cancelling twice is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	body := s.body
	s.mu.Unlock()

	s.cancel()
	if body != nil {
		body.Close()
	}
}

// Cancelled reports whether Cancel was called
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Done is closed when the session's read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its stats and terminal error.
func (s *Session) Wait() (Stats, error) {
	<-s.done
	return s.stats, s.err
}

func (s *Session) run(release func(*Session)) {
	log := logger.WithComponent("stream")
	defer close(s.done)
	defer release(s)
	defer s.cancel()

	body, err := s.open(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			s.err = ErrCancelled
			return
		}
		log.Error("failed to open stream", "session", s.ID, "error", err)
		s.err = err
		s.OnError(err)
		return
	}

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		body.Close()
		s.err = ErrCancelled
		return
	}
	s.body = body
	s.mu.Unlock()
	defer body.Close()

	log.Debug("stream opened", "session", s.ID)
	s.stats, s.err = Consume(s.ctx, body, s)
	switch {
	case errors.Is(s.err, ErrCancelled):
		log.Debug("stream cancelled", "session", s.ID, "deltas", s.stats.Deltas)
	case s.err != nil:
		log.Error("stream failed", "session", s.ID, "error", s.err)
	default:
		log.Debug("stream complete", "session", s.ID, "deltas", s.stats.Deltas, "skipped", s.stats.Skipped)
	}
}

// OnDelta forwards to the target unless the session is over.
func (s *Session) OnDelta(text string) {
	s.deliver(false, func() { s.target.OnDelta(text) })
}

// OnComplete forwards to the target at most once.
func (s *Session) OnComplete(fullText string) {
	s.deliver(true, func() { s.target.OnComplete(fullText) })
}

// OnError forwards to the target at most once.
func (s *Session) OnError(err error) {
	s.deliver(true, func() { s.target.OnError(err) })
}

func (s *Session) deliver(final bool, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.finished {
		return
	}
	if final {
		s.finished = true
	}
	fn()
}

var _ Handler = (*Session)(nil)

// Manager owns the single active stream session.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

// NewManager creates a manager with no active session
func NewManager() *Manager {
	return &Manager{}
}

// Start cancels the active session, if any, and begins a new one that reads
// the body returned by open. Handler callbacks run on the session goroutine
// and must not call back into the Manager.
func (m *Manager) Start(ctx context.Context, open OpenFunc, h Handler) *Session {
	s := newSession(ctx, open, h)

	m.mu.Lock()
	prev := m.active
	m.active = s
	m.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	go s.run(m.release)
	return s
}

// Active returns the running session or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Cancel stops the active session. It reports whether one was running.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()

	if s == nil {
		return false
	}
	s.Cancel()
	return true
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}
