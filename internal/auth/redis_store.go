package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// between replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewRedisStore creates a RedisStore using client.
func NewRedisStore(client *redis.Client, ttl time.Duration, secure bool) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, secure: secure}
}

// Create stores a new session under a random ID and sets the session cookie.
func (s *RedisStore) Create(w http.ResponseWriter, r *http.Request, user models.User) (models.Session, error) {
	ctx := r.Context()
	if old, ok := sessionCookieValue(r); ok {
		if err := s.client.Del(ctx, redisKeyPrefix+old).Err(); err != nil {
			return models.Session{}, fmt.Errorf("failed to drop previous session: %w", err)
		}
	}

	sess := models.Session{ID: uuid.New().String(), UserID: user.ID, Username: user.Username}
	data, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return models.Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	setSessionCookie(w, sess.ID, s.ttl, s.secure)
	return sess, nil
}

// Get loads the session referenced by the cookie.
func (s *RedisStore) Get(r *http.Request) (models.Session, error) {
	id, ok := sessionCookieValue(r)
	if !ok {
		return models.Session{}, ErrNoSession
	}

	data, err := s.client.Get(r.Context(), redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, fmt.Errorf("%w: corrupt session data", ErrNoSession)
	}
	return sess, nil
}

// Destroy deletes the session and clears the cookie.
func (s *RedisStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	clearSessionCookie(w, s.secure)
	if id, ok := sessionCookieValue(r); ok {
		if err := s.client.Del(r.Context(), redisKeyPrefix+id).Err(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return nil
}
