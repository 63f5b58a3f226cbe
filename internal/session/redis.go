package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"fintastic/internal/config"
	apperrors "fintastic/internal/errors"
)

// keyPrefix namespaces session keys.
const keyPrefix = "fintastic:session:"

// maxUpdateRetries bounds optimistic-lock retries in Update.
const maxUpdateRetries = 5

// RedisStore keeps sessions in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s := NewRedisStoreWithClient(client, cfg.TTL, logger)
	s.logger.InfoContext(ctx, "connected to Redis", slog.String("addr", cfg.RedisAddr))
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

func key(id string) string {
	return keyPrefix + id
}

// Create stores a new session.
func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, key(s.ID), data, r.ttl).Err(); err != nil {
		return r.unavailable(ctx, "create", err)
	}
	return nil
}

// Get loads a session.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errSessionNotFound()
	}
	if err != nil {
		return nil, r.unavailable(ctx, "get", err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, r.unavailable(ctx, "get", fmt.Errorf("corrupt session %s: %w", id, err))
	}
	return s, nil
}

// Update applies fn inside a WATCH transaction and retries when another
// writer changed the session in between.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	k := key(id)
	var (
		updated *Session
		fnErr   error
	)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			return err
		}
		s, err := decode(data)
		if err != nil {
			return fmt.Errorf("corrupt session %s: %w", id, err)
		}
		if fnErr = fn(s); fnErr != nil {
			return fnErr
		}
		s.UpdatedAt = time.Now().UTC()
		encoded, err := encode(s)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, encoded, r.ttl)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, k)
		if fnErr != nil {
			return nil, fnErr
		}
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			r.logger.DebugContext(ctx, "session update conflict, retrying",
				slog.String("session_id", id), slog.Int("attempt", attempt+1))
			continue
		case errors.Is(err, redis.Nil):
			return nil, errSessionNotFound()
		}
		return nil, r.unavailable(ctx, "update", err)
	}
	return nil, r.unavailable(ctx, "update", fmt.Errorf("session %s: too many concurrent updates", id))
}

// Delete removes the session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return r.unavailable(ctx, "delete", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return r.unavailable(ctx, "ping", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) unavailable(ctx context.Context, operation string, err error) error {
	r.logger.ErrorContext(ctx, "session store operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
	return apperrors.NewBackendUnavailableError("session "+operation, err)
}
