package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Patient types and statuses the census breaks counts down by.
var (
	CensusTypes    = []string{"Inpatient", "Outpatient"}
	CensusStatuses = []string{"Stable", "Recovering", "Improving", "Critical"}
)

// CensusCounter is the part of the patient registry the census reads.
type CensusCounter interface {
	CountPatients(ctx context.Context, patientType string) (int, error)
	CountByStatus(ctx context.Context, status *string) (int, error)
}

var _ CensusCounter = services.PatientServiceProvider(nil)

// Snapshot is the result of one census run.
type Snapshot struct {
	TakenAt  time.Time
	Total    int
	ByType   map[string]int
	ByStatus map[string]int
}

// Census periodically counts the registry, logs the result and exports it as
// gauges.
type Census struct {
	patients CensusCounter
	metrics  *metrics.Metrics
	cron     *cron.Cron

	mu   sync.Mutex
	last *Snapshot
}

// NewCensus creates a census over patients. m may be nil.
func NewCensus(patients CensusCounter, m *metrics.Metrics) *Census {
	return &Census{patients: patients, metrics: m}
}

// Start schedules the census using a standard cron expression.
func (c *Census) Start(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid census schedule %q: %w", spec, err)
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(spec, func() {
		if _, err := c.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("Census: run failed")
		}
	}); err != nil {
		return err
	}
	c.cron.Start()
	log.Info().Str("schedule", spec).Msg("Census scheduled")
	return nil
}

// Stop halts the schedule and waits for a running census to finish.
func (c *Census) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	log.Info().Msg("Stopping census.")
}

// Run takes a census immediately.
func (c *Census) Run(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		TakenAt:  time.Now(),
		ByType:   make(map[string]int, len(CensusTypes)),
		ByStatus: make(map[string]int, len(CensusStatuses)),
	}

	var err error
	if snap.Total, err = c.patients.CountPatients(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	for _, typ := range CensusTypes {
		if snap.ByType[typ], err = c.patients.CountPatients(ctx, typ); err != nil {
			return Snapshot{}, err
		}
	}
	for _, status := range CensusStatuses {
		if snap.ByStatus[status], err = c.patients.CountByStatus(ctx, &status); err != nil {
			return Snapshot{}, err
		}
	}

	c.export(snap)

	c.mu.Lock()
	c.last = &snap
	c.mu.Unlock()
	return snap, nil
}

// Last returns the most recent snapshot, if any.
func (c *Census) Last() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Snapshot{}, false
	}
	return *c.last, true
}

func (c *Census) export(snap Snapshot) {
	event := log.Info().Int("total", snap.Total)
	byType := zerolog.Dict()
	for typ, n := range snap.ByType {
		byType.Int(typ, n)
	}
	byStatus := zerolog.Dict()
	for status, n := range snap.ByStatus {
		byStatus.Int(status, n)
	}
	event.Dict("by_type", byType).Dict("by_status", byStatus).Msg("Census taken")

	if c.metrics == nil {
		return
	}
	c.metrics.CensusPatients.WithLabelValues("total", "all").Set(float64(snap.Total))
	for typ, n := range snap.ByType {
		c.metrics.CensusPatients.WithLabelValues("type", typ).Set(float64(n))
	}
	for status, n := range snap.ByStatus {
		c.metrics.CensusPatients.WithLabelValues("status", status).Set(float64(n))
	}
}
