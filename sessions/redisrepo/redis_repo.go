package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/steadmanrj/linkfolio/sessions"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo is a Redis-backed session repo. Records are JSON values with a TTL
// equal to the remaining session lifetime, so Redis expires them on its own.
type Repo struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client) *Repo {
	return &Repo{
		client: client,
		prefix: "session:",
	}
}

func (r *Repo) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *Repo) Upsert(ctx context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("redisrepo: missing session id")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redisrepo: expires_at must be in the future")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redisrepo: marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(session.ID), data, ttl).Err()
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session sessions.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("redisrepo: unmarshal: %w", err)
	}
	return &session, nil
}

// Update runs fn inside an optimistic WATCH transaction so a concurrent
// write to the same session aborts and retries instead of being lost.
func (r *Repo) Update(ctx context.Context, sessionID string, fn func(*sessions.Session) error) error {
	key := r.key(sessionID)

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return sessions.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var session sessions.Session
		if err := json.Unmarshal([]byte(val), &session); err != nil {
			return fmt.Errorf("redisrepo: unmarshal: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}

		data, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("redisrepo: marshal: %w", err)
		}

		ttl := time.Until(session.ExpiresAt)
		if ttl <= 0 {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redisrepo: update contention on session %s", sessionID)
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}
