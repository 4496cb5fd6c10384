package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return assert.AnError })

	t.Run("live", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil, t.TempDir()).Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"UP"}`, rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(map[string]Pinger{"users": up, "patients": up}, t.TempDir()).
			Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body readiness
		decode(t, rec, &body)
		assert.Equal(t, statusUp, body.Status)
		assert.Equal(t, map[string]string{"users": statusUp, "patients": statusUp}, body.Databases)
	})

	t.Run("database down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(map[string]Pinger{"users": up, "patients": down}, t.TempDir()).
			Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body readiness
		decode(t, rec, &body)
		assert.Equal(t, statusDown, body.Status)
		assert.Equal(t, statusDown, body.Databases["patients"])
	})
}
