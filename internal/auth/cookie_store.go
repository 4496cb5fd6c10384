package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/dr-oncall-be/internal/models"
)

// Claims defines the JWT claims carried by the session cookie.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// CookieStore keeps the whole session in an HMAC-signed JWT cookie. Nothing
// is stored server side, so Destroy only clears the client's cookie.
type CookieStore struct {
	key    []byte
	ttl    time.Duration
	secure bool
}

// NewCookieStore creates a CookieStore signing with secret.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	return &CookieStore{key: []byte(secret), ttl: ttl, secure: secure}
}

// Create signs a new token for user and sets it as the session cookie.
func (s *CookieStore) Create(w http.ResponseWriter, _ *http.Request, user models.User) (models.Session, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	setSessionCookie(w, token, s.ttl, s.secure)

	return models.Session{ID: claims.ID, UserID: user.ID, Username: user.Username}, nil
}

// Get validates the session cookie.
func (s *CookieStore) Get(r *http.Request) (models.Session, error) {
	tokenStr, ok := sessionCookieValue(r)
	if !ok {
		return models.Session{}, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return models.Session{ID: claims.ID, UserID: claims.UserID, Username: claims.Username}, nil
}

// Destroy clears the session cookie.
func (s *CookieStore) Destroy(w http.ResponseWriter, _ *http.Request) error {
	clearSessionCookie(w, s.secure)
	return nil
}
