package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isdelr/dr-oncall-be/internal/api"
	"github.com/isdelr/dr-oncall-be/internal/api/handlers"
	"github.com/isdelr/dr-oncall-be/internal/auth"
	"github.com/isdelr/dr-oncall-be/internal/config"
	"github.com/isdelr/dr-oncall-be/internal/database"
	"github.com/isdelr/dr-oncall-be/internal/logger"
	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/isdelr/dr-oncall-be/internal/monitoring"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/isdelr/dr-oncall-be/internal/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_PRETTY") != "false")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	// Set up databases. Both tables share one file unless configured apart.
	usersDB, err := openDB(cfg.UsersDSN(), cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.UsersDSN()).Msg("Failed to initialize users database")
	}
	defer usersDB.Close()

	patientsDB := usersDB
	if cfg.PatientsDSN() != cfg.UsersDSN() {
		patientsDB, err = openDB(cfg.PatientsDSN(), cfg.DBMaxOpenConns)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PatientsDSN()).Msg("Failed to initialize patients database")
		}
		defer patientsDB.Close()
	}

	if err := database.MigrateUsers(usersDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply users migrations")
	}
	if err := database.MigratePatients(patientsDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply patients migrations")
	}

	sessions, closeSessions, err := newSessionStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.SessionBackend).Msg("Failed to initialize session store")
	}
	defer closeSessions()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	m := metrics.New()
	userService := services.NewUserService(usersDB, auth.NewBcryptHasher(cfg.BcryptCost))
	patientService := services.NewPatientService(patientsDB, hub)

	census := monitoring.NewCensus(patientService, m)
	if cfg.CensusSchedule != "" {
		if err := census.Start(cfg.CensusSchedule); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule census")
		}
	}

	// Set up router
	router := api.NewRouter(hub, userService, patientService, sessions, m, api.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		LoginRatePerSecond: cfg.LoginRatePerSecond,
		LoginRateBurst:     cfg.LoginRateBurst,
		Databases: map[string]handlers.Pinger{
			"users":    usersDB,
			"patients": patientsDB,
		},
		DataDir: filepath.Dir(cfg.PatientsDSN()),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	census.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

func openDB(path string, maxOpenConns int) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return database.New(path, maxOpenConns)
}

// newSessionStore builds the store selected by SESSION_BACKEND. The returned
// func releases any connection the store holds.
func newSessionStore(cfg *config.Config) (auth.Store, func(), error) {
	secure := cfg.IsProduction()
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return auth.NewMemoryStore(cfg.SessionTTL, secure), func() {}, nil
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return auth.NewRedisStore(client, cfg.SessionTTL, secure), func() { client.Close() }, nil
	default:
		return auth.NewCookieStore(cfg.SessionSecret, cfg.SessionTTL, secure), func() {}, nil
	}
}
