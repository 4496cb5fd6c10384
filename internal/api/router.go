package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/dr-oncall-be/internal/api/handlers"
	"github.com/isdelr/dr-oncall-be/internal/auth"
	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/isdelr/dr-oncall-be/internal/websocket"
)

// Options carries the router settings that are not services.
type Options struct {
	AllowedOrigins []string

	// LoginRatePerSecond and LoginRateBurst throttle POST /login and
	// POST /register per client IP. Zero disables throttling.
	LoginRatePerSecond float64
	LoginRateBurst     int

	// Views renders the auth pages. Defaults to handlers.JSONRenderer.
	Views handlers.ViewRenderer

	// Databases are pinged by /health/ready; DataDir is reported for disk usage.
	Databases map[string]handlers.Pinger
	DataDir   string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *websocket.Hub,
	userService services.UserServiceProvider,
	patientService services.PatientServiceProvider,
	sessions auth.Store,
	m *metrics.Metrics,
	opts Options,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(peerAddr)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(instrument(m))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	views := opts.Views
	if views == nil {
		views = handlers.JSONRenderer{}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, sessions, views, m)
	patientHandler := handlers.NewPatientHandler(patientService)
	healthHandler := handlers.NewHealthHandler(opts.Databases, opts.DataDir)
	wsHandler := handlers.NewWebSocketHandler(hub, opts.AllowedOrigins)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	if m != nil {
		r.Method("GET", "/metrics", m.Handler())
	}

	// Auth pages
	r.Get("/register", authHandler.RegisterForm)
	r.Get("/login", authHandler.LoginForm)
	r.Group(func(r chi.Router) {
		if opts.LoginRatePerSecond > 0 && opts.LoginRateBurst > 0 {
			r.Use(newIPRateLimiter(opts.LoginRatePerSecond, opts.LoginRateBurst).Middleware)
		}
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})
	r.Get("/logout", authHandler.Logout)
	r.Post("/logout", authHandler.Logout)
	r.With(auth.RequireSession(sessions, authHandler.Unauthenticated)).Get("/dashboard", authHandler.Dashboard)

	// Patient registry
	r.Route("/api/patients", func(r chi.Router) {
		r.Get("/", patientHandler.GetAll)
		r.Post("/", patientHandler.Create)
		r.Get("/count", patientHandler.Count)
		r.Get("/count/status", patientHandler.CountByStatus)
		r.Get("/recent", patientHandler.Recent)
		r.Get("/ws", wsHandler.Serve)
		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", patientHandler.Get)
			r.Delete("/", patientHandler.Delete)
		})
	})

	return r
}
