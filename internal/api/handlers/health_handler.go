package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	databases map[string]Pinger
	dataDir   string
}

// NewHealthHandler creates a new HealthHandler. databases are keyed by the
// name reported in the readiness body; dataDir is the directory whose disk
// usage is reported.
func NewHealthHandler(databases map[string]Pinger, dataDir string) *HealthHandler {
	return &HealthHandler{databases: databases, dataDir: dataDir}
}

type readiness struct {
	Status    string            `json:"status"`
	Databases map[string]string `json:"databases"`
	Disk      *diskStats        `json:"disk,omitempty"`
	Memory    *memoryStats      `json:"memory,omitempty"`
}

type diskStats struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

type memoryStats struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// Live reports that the process is serving requests.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// Ready pings every database and adds host resource usage. Any failed ping
// makes the service unready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := readiness{Status: statusUp, Databases: make(map[string]string, len(h.databases))}
	for name, db := range h.databases {
		if err := db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Str("database", name).Msg("Readiness check failed")
			body.Databases[name] = statusDown
			body.Status = statusDown
			continue
		}
		body.Databases[name] = statusUp
	}

	// Host stats are informational only.
	if usage, err := disk.UsageWithContext(ctx, h.dataDir); err == nil {
		body.Disk = &diskStats{Path: usage.Path, Total: usage.Total, Free: usage.Free, UsedPercent: usage.UsedPercent}
	} else {
		log.Debug().Err(err).Str("path", h.dataDir).Msg("Could not read disk usage")
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		body.Memory = &memoryStats{Total: vm.Total, Available: vm.Available, UsedPercent: vm.UsedPercent}
	} else {
		log.Debug().Err(err).Msg("Could not read memory usage")
	}

	status := http.StatusOK
	if body.Status != statusUp {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
