package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestClientIPUsesPeerAddress(t *testing.T) {
	var seen, realIP string
	h := peerAddr(middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientIP(r)
		realIP = r.RemoteAddr
	})))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.10", seen)
	assert.Equal(t, "203.0.113.7", realIP, "logging still sees the forwarded address")
}

func TestIPRateLimiterBucketsPerPeer(t *testing.T) {
	limiter := newIPRateLimiter(0.001, 1)
	h := peerAddr(middleware.RealIP(limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))))

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.10:1000", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.10:1001", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.10:1002", "203.0.113.2"))
	assert.Equal(t, http.StatusOK, send("192.0.2.11:1000", ""))
	assert.Equal(t, 2, limiter.limiters.ItemCount())
}
