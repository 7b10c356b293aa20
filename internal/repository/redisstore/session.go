// Package redisstore implements repository.SessionRepository on top of Redis so
// several server instances can share login state.
//
// Each session is one JSON value under "session:<id>" whose TTL is the idle
// timeout. A per-user set "user-sessions:<userID>" indexes the ids so the
// forced password-change flag can be cleared across all of a user's sessions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Options configures the connection. TTL should match the session idle timeout.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewSessionStore connects and pings Redis. The caller owns Close.
func NewSessionStore(ctx context.Context, opts Options) (*SessionStore, error) {
	if opts.TTL <= 0 {
		return nil, errors.New("redis: session TTL must be positive")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return &SessionStore{client: client, ttl: opts.TTL}, nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user-sessions:" + id }

func (s *SessionStore) CreateSession(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: encoding session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, s.ttl)
		pipe.SAdd(ctx, userSessionsKey(sess.UserID), sess.ID)
		pipe.Expire(ctx, userSessionsKey(sess.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: creating session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: getting session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redis: decoding session: %w", err)
	}
	return &sess, nil
}

// TouchSession rewrites the record, which also restarts its TTL.
func (s *SessionStore) TouchSession(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: encoding session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), data, s.ttl)
		pipe.Expire(ctx, userSessionsKey(sess.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: touching session: %w", err)
	}
	return nil
}

func (s *SessionStore) ClearPasswordChange(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis: listing user sessions: %w", err)
	}

	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if errors.Is(err, apperror.ErrNotFound) {
			// Expired; drop the dangling index entry.
			s.client.SRem(ctx, userSessionsKey(userID), id)
			continue
		}
		if err != nil {
			return err
		}
		if !sess.MustChangePassword {
			continue
		}

		sess.MustChangePassword = false
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("redis: encoding session: %w", err)
		}
		// SetXX never resurrects a session that expired between GET and SET.
		if err := s.client.SetXX(ctx, sessionKey(id), data, redis.KeepTTL).Err(); err != nil {
			return fmt.Errorf("redis: updating session: %w", err)
		}
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.GetSession(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, userSessionsKey(sess.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: deleting session: %w", err)
	}
	return nil
}
