package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "fintastic/internal/errors"
)

// Store persists sessions. Update runs fn on the current session and saves
// the result atomically with respect to other updates of the same session.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound matches, through errors.Is, the error returned for an unknown
// or expired session.
var ErrNotFound error = &apperrors.AppError{Type: apperrors.ErrTypeNotFound, Message: "session not found"}

func errSessionNotFound() error {
	return apperrors.NewNotFoundError("session")
}

type memoryEntry struct {
	session *Session
	expires time.Time
}

// MemoryStore keeps sessions in process memory with a sliding TTL.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewMemoryStore creates a store. A zero ttl keeps sessions until deleted.
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

func (m *MemoryStore) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

// lookup returns the live entry for id. Callers hold mu.
func (m *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return e, false
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.sessions, id)
		return e, false
	}
	return e, true
}

// Create stores a new session.
func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: s.clone(), expires: m.expiry()}
	m.logger.DebugContext(ctx, "session created", slog.String("session_id", s.ID))
	return nil
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return nil, errSessionNotFound()
	}
	return e.session.clone(), nil
}

// Update applies fn under the store lock. The session is unchanged when fn fails.
func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return nil, errSessionNotFound()
	}
	next := e.session.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now().UTC()
	m.sessions[id] = memoryEntry{session: next, expires: m.expiry()}
	return next.clone(), nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.logger.DebugContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.sessions {
		if _, ok := m.lookup(id); ok {
			n++
		}
	}
	return n
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
