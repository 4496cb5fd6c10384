package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/dr-oncall-be/internal/api/handlers"
	"github.com/isdelr/dr-oncall-be/internal/auth"
	"github.com/isdelr/dr-oncall-be/internal/database"
	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/isdelr/dr-oncall-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "hospital.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.MigrateUsers(db))
	require.NoError(t, database.MigratePatients(db))

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	opts.Databases = map[string]handlers.Pinger{"users": db, "patients": db}
	router := NewRouter(
		hub,
		services.NewUserService(db, auth.NewBcryptHasher(4)),
		services.NewPatientService(db, hub),
		auth.NewMemoryStore(time.Hour, false),
		metrics.New(),
		opts,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{
		Server: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (s *testServer) postForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := s.client.PostForm(s.URL+path, values)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	creds := url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"s3cret"}}

	resp := s.do(t, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = s.postForm(t, "/register", creds)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = s.postForm(t, "/register", url.Values{"username": {"alice"}, "email": {"other@example.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = s.do(t, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		View     string `json:"view"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "dashboard", view.View)
	assert.Equal(t, "alice", view.Username)

	resp = s.do(t, http.MethodGet, "/logout", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestPatientAPI(t *testing.T) {
	s := newTestServer(t, Options{})
	body := `{
		"first_name": "Grace", "last_name": "Hopper", "dob": "1906-12-09", "gender": "female",
		"address": "Arlington, VA", "phone": "555-0100", "patient_type": "Inpatient",
		"admission_date": "2024-03-05", "primary_condition": "fracture",
		"condition_severity": "moderate", "current_status": "Stable", "photo": null
	}`

	resp := s.do(t, http.MethodPost, "/api/patients", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)
	path := "/api/patients/" + strconv.FormatInt(created.ID, 10)

	resp = s.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Grace", got["first_name"])
	assert.Nil(t, got["photo"])
	assert.NotEmpty(t, got["created_at"])

	resp = s.do(t, http.MethodGet, "/api/patients/count?type=Inpatient", "")
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)

	resp = s.do(t, http.MethodGet, "/api/patients/count/status?status=Stable", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)

	resp = s.do(t, http.MethodPost, "/api/patients", `{"first_name":"Grace"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp = s.do(t, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	resp = s.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, Options{LoginRatePerSecond: 0.001, LoginRateBurst: 2})
	creds := url.Values{"username": {"nobody"}, "password": {"x"}}

	assert.Equal(t, http.StatusUnauthorized, s.postForm(t, "/login", creds).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, s.postForm(t, "/login", creds).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, s.postForm(t, "/login", creds).StatusCode)

	// Reads are never throttled.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/login", "").StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "").StatusCode)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "").StatusCode)

	s.do(t, http.MethodGet, "/api/patients/7", "")
	resp := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "dr_oncall_http_requests_total")
	assert.Contains(t, sb.String(), "/api/patients/{id:[0-9]+}")
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, Options{LoginRatePerSecond: 0.001, LoginRateBurst: 2})
	form := url.Values{"username": {"nobody"}, "password": {"x"}}.Encode()

	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		req, err := http.NewRequest(http.MethodPost, s.URL+"/login", strings.NewReader(form))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		req.Header.Set("X-Real-IP", "198.51.100."+strconv.Itoa(i+1))
		resp, err := s.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes[resp.StatusCode]++
	}

	assert.Equal(t, 2, codes[http.StatusUnauthorized])
	assert.Equal(t, 8, codes[http.StatusTooManyRequests])
}
