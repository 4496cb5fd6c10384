package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/dr-oncall-be/internal/models"
)

// ErrNoSession is returned by a Store when the request carries no valid session.
var ErrNoSession = errors.New("no active session")

// CookieName is the cookie carrying the session token or session ID.
const CookieName = "session"

// Store persists sessions outside the request. Implementations differ only
// in where the session data lives; handlers depend on this interface alone.
type Store interface {
	// Get returns the session bound to the request or ErrNoSession.
	Get(r *http.Request) (models.Session, error)
	// Create issues a new session for user and attaches it to the response.
	Create(w http.ResponseWriter, r *http.Request, user models.User) (models.Session, error)
	// Destroy clears any session bound to the request. It is safe to call
	// without a session.
	Destroy(w http.ResponseWriter, r *http.Request) error
}

type contextKey string

// SessionKey is the context key for the authenticated session.
const SessionKey = contextKey("session")

// FromContext returns the session stored by RequireSession.
func FromContext(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(models.Session)
	return sess, ok
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess models.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

func setSessionCookie(w http.ResponseWriter, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionCookieValue(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
