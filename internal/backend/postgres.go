package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"fintastic/internal/config"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/infrastructure"
	"fintastic/internal/table"
)

// uniqueViolation is the SQLSTATE raised on a duplicate key.
const uniqueViolation = "23505"

// Schema creates the tables used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS uploaded_rows (
	id         BIGSERIAL PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	columns    TEXT[] NOT NULL,
	cells      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS uploaded_rows_user_id_idx ON uploaded_rows (user_id, id);
`

// DBQuerier is the subset of a pgx pool used by Postgres.
type DBQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres stores accounts and rows in PostgreSQL.
type Postgres struct {
	db      DBQuerier
	cost    int
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewPostgres opens a pool from cfg and checks connectivity.
func NewPostgres(ctx context.Context, cfg config.BackendConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := NewPostgresWithQuerier(pool, logger, metrics)
	p.logger.InfoContext(ctx, "connected to PostgreSQL", slog.Int("max_conns", int(poolCfg.MaxConns)))
	return p, nil
}

// NewPostgresWithQuerier wraps an existing pool or a mock.
func NewPostgresWithQuerier(db DBQuerier, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		db:      db,
		cost:    bcrypt.DefaultCost,
		logger:  logger.With(slog.String("component", "postgres_backend")),
		metrics: metrics,
	}
}

// WithCost sets the bcrypt cost for new passwords.
func (p *Postgres) WithCost(cost int) *Postgres {
	p.cost = cost
	return p
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return p.unavailable(ctx, "migrate", err)
	}
	return nil
}

// Register creates an account. An empty role becomes DefaultRole.
func (p *Postgres) Register(ctx context.Context, email, password, role string) (User, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return User{}, err
	}
	if role == "" {
		role = DefaultRole
	}
	hash, err := hashPassword(password, p.cost)
	if err != nil {
		return User{}, err
	}

	u := User{ID: uuid.NewString(), Email: email, Role: role}
	err = p.db.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Email, hash, u.Role,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, errEmailTaken()
		}
		return User{}, p.unavailable(ctx, "register", err)
	}

	p.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID), slog.String("role", role))
	return u, nil
}

// Authenticate checks credentials against the stored bcrypt hash.
func (p *Postgres) Authenticate(ctx context.Context, email, password string) (User, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return User{}, errInvalidCredentials()
	}

	u := User{Email: email}
	var hash string
	err = p.db.QueryRow(ctx,
		`SELECT id, password_hash, role, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &hash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		p.logger.WarnContext(ctx, "authentication failed", slog.Bool("known_email", false))
		return User{}, errInvalidCredentials()
	}
	if err != nil {
		return User{}, p.unavailable(ctx, "authenticate", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		p.logger.WarnContext(ctx, "authentication failed", slog.Bool("known_email", true))
		return User{}, errInvalidCredentials()
	}
	return u, nil
}

// InsertRows copies the rows of tbl into uploaded_rows.
func (p *Postgres) InsertRows(ctx context.Context, userID string, tbl *table.Table) (int, error) {
	rows := RowsFromTable(tbl)
	if len(rows) == 0 {
		return 0, nil
	}

	source := make([][]interface{}, len(rows))
	for i, r := range rows {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return 0, fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		source[i] = []interface{}{userID, r.Columns, cells}
	}

	start := time.Now()
	n, err := p.db.CopyFrom(ctx,
		pgx.Identifier{"uploaded_rows"},
		[]string{"user_id", "columns", "cells"},
		pgx.CopyFromRows(source),
	)
	if err != nil {
		return 0, p.unavailable(ctx, "insert_rows", err)
	}
	p.logger.InfoContext(ctx, "rows stored",
		slog.String("user_id", userID),
		slog.Int64("rows", n),
		slog.Duration("duration", time.Since(start)))
	return int(n), nil
}

// FetchRows reads back every row stored for the user, oldest first.
func (p *Postgres) FetchRows(ctx context.Context, userID string) (*table.Table, error) {
	result, err := p.db.Query(ctx,
		`SELECT columns, cells FROM uploaded_rows WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, p.unavailable(ctx, "fetch_rows", err)
	}
	defer result.Close()

	var rows []Row
	for result.Next() {
		var (
			columns []string
			raw     []byte
		)
		if err := result.Scan(&columns, &raw); err != nil {
			return nil, p.unavailable(ctx, "fetch_rows", err)
		}
		var cells []*string
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, p.unavailable(ctx, "fetch_rows", fmt.Errorf("corrupt row cells: %w", err))
		}
		rows = append(rows, Row{Columns: columns, Cells: cells})
	}
	if err := result.Err(); err != nil {
		return nil, p.unavailable(ctx, "fetch_rows", err)
	}
	if len(rows) == 0 {
		return nil, errNoRows()
	}
	return TableFromRows(rows)
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return p.unavailable(ctx, "ping", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.db.Close()
	p.logger.Info("PostgreSQL connection closed")
}

// unavailable logs the cause and hides it behind a BackendUnavailable error.
func (p *Postgres) unavailable(ctx context.Context, operation string, err error) error {
	p.logger.ErrorContext(ctx, "backend operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
	infrastructure.RecordBackendError(ctx, p.metrics, operation)
	return apperrors.NewBackendUnavailableError(operation, err)
}
