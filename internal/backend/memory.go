package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintastic/internal/table"
)

type memoryUser struct {
	User
	hash string
}

// Memory keeps accounts and rows in process memory.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]*memoryUser
	rows    map[string][]Row
	cost    int
	logger  *slog.Logger
}

// NewMemory creates an empty in-memory backend.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		byEmail: make(map[string]*memoryUser),
		rows:    make(map[string][]Row),
		cost:    bcrypt.DefaultCost,
		logger:  logger.With(slog.String("component", "memory_backend")),
	}
}

// WithCost sets the bcrypt cost for new passwords.
func (m *Memory) WithCost(cost int) *Memory {
	m.cost = cost
	return m
}

// Register creates an account. An empty role becomes DefaultRole.
func (m *Memory) Register(ctx context.Context, email, password, role string) (User, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return User{}, err
	}
	if role == "" {
		role = DefaultRole
	}
	hash, err := hashPassword(password, m.cost)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		return User{}, errEmailTaken()
	}
	u := &memoryUser{
		User: User{
			ID:        uuid.NewString(),
			Email:     email,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		},
		hash: hash,
	}
	m.byEmail[email] = u
	m.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID), slog.String("role", role))
	return u.User, nil
}

// Authenticate checks credentials.
func (m *Memory) Authenticate(ctx context.Context, email, password string) (User, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return User{}, errInvalidCredentials()
	}

	m.mu.RLock()
	u, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.hash), []byte(password)) != nil {
		m.logger.WarnContext(ctx, "authentication failed", slog.Bool("known_email", ok))
		return User{}, errInvalidCredentials()
	}
	return u.User, nil
}

// InsertRows appends the rows of tbl to the user's stored data.
func (m *Memory) InsertRows(ctx context.Context, userID string, tbl *table.Table) (int, error) {
	rows := RowsFromTable(tbl)
	m.mu.Lock()
	m.rows[userID] = append(m.rows[userID], rows...)
	m.mu.Unlock()
	return len(rows), nil
}

// FetchRows returns every row stored for the user.
func (m *Memory) FetchRows(ctx context.Context, userID string) (*table.Table, error) {
	m.mu.RLock()
	rows := append([]Row(nil), m.rows[userID]...)
	m.mu.RUnlock()
	if len(rows) == 0 {
		return nil, errNoRows()
	}
	return TableFromRows(rows)
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}
