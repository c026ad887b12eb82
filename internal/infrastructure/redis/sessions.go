package redisinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-redis/redis/v8"
)

// NewClient parses url (redis://host:port/db) and checks the connection.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// SessionStore keeps sessions as JSON values that expire with the session.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := sessionKey(sessionID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Put stores sess until its ExpiresAt. A session without expiry is kept
// until deleted.
func (s *SessionStore) Put(ctx context.Context, sess *domain.Session) error {
	var ttl time.Duration
	if sess.ExpiresAt > 0 {
		ttl = time.Until(time.Unix(sess.ExpiresAt, 0))
		if ttl <= 0 {
			return s.Delete(ctx, sess.SessionID)
		}
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(sess.SessionID), data, ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}
