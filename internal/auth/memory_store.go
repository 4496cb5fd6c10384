package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory keyed by a random session ID.
// Sessions are lost on restart and are not shared between replicas.
type MemoryStore struct {
	cache  *cache.Cache
	ttl    time.Duration
	secure bool
}

// NewMemoryStore creates a MemoryStore whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration, secure bool) *MemoryStore {
	return &MemoryStore{
		cache:  cache.New(ttl, 10*time.Minute),
		ttl:    ttl,
		secure: secure,
	}
}

// Create stores a new session and sets its ID as the session cookie. Any
// session already bound to the request is discarded.
func (s *MemoryStore) Create(w http.ResponseWriter, r *http.Request, user models.User) (models.Session, error) {
	if old, ok := sessionCookieValue(r); ok {
		s.cache.Delete(old)
	}

	sess := models.Session{ID: uuid.New().String(), UserID: user.ID, Username: user.Username}
	s.cache.Set(sess.ID, sess, s.ttl)
	setSessionCookie(w, sess.ID, s.ttl, s.secure)
	return sess, nil
}

// Get looks up the session referenced by the cookie.
func (s *MemoryStore) Get(r *http.Request) (models.Session, error) {
	id, ok := sessionCookieValue(r)
	if !ok {
		return models.Session{}, ErrNoSession
	}
	v, found := s.cache.Get(id)
	if !found {
		return models.Session{}, ErrNoSession
	}
	return v.(models.Session), nil
}

// Destroy removes the session and clears the cookie.
func (s *MemoryStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	if id, ok := sessionCookieValue(r); ok {
		s.cache.Delete(id)
	}
	clearSessionCookie(w, s.secure)
	return nil
}
