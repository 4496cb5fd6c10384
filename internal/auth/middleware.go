package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// RequireSession creates a middleware for protecting routes. Requests without
// a session are passed to unauthenticated instead of next.
func RequireSession(store Store, unauthenticated http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Get(r)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.Error().Err(err).Msg("Failed to load session")
				}
				unauthenticated(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
