package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/isdelr/dr-oncall-be/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	byType   map[string]int
	byStatus map[string]int
	err      error
}

func (f *fakeCounter) CountPatients(_ context.Context, patientType string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if patientType == "" {
		total := 0
		for _, n := range f.byType {
			total += n
		}
		return total, nil
	}
	return f.byType[patientType], nil
}

func (f *fakeCounter) CountByStatus(_ context.Context, status *string) (int, error) {
	if status == nil {
		return 0, nil
	}
	return f.byStatus[*status], nil
}

func TestCensusRun(t *testing.T) {
	m := metrics.New()
	census := NewCensus(&fakeCounter{
		byType:   map[string]int{"Inpatient": 3, "Outpatient": 2},
		byStatus: map[string]int{"Critical": 1, "Stable": 4},
	}, m)

	_, ok := census.Last()
	assert.False(t, ok)

	snap, err := census.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 3, snap.ByType["Inpatient"])
	assert.Equal(t, 1, snap.ByStatus["Critical"])
	assert.Equal(t, 0, snap.ByStatus["Improving"])

	last, ok := census.Last()
	require.True(t, ok)
	assert.Equal(t, snap.Total, last.Total)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.CensusPatients.WithLabelValues("total", "all")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CensusPatients.WithLabelValues("type", "Outpatient")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CensusPatients.WithLabelValues("status", "Stable")))
}

func TestCensusRunError(t *testing.T) {
	census := NewCensus(&fakeCounter{err: errors.New("database is locked")}, nil)
	_, err := census.Run(context.Background())
	assert.Error(t, err)

	_, ok := census.Last()
	assert.False(t, ok)
}

func TestCensusStartRejectsBadSchedule(t *testing.T) {
	census := NewCensus(&fakeCounter{}, nil)
	assert.Error(t, census.Start("every five minutes"))
	assert.NotPanics(t, census.Stop)
}

func TestCensusStartStop(t *testing.T) {
	census := NewCensus(&fakeCounter{}, nil)
	require.NoError(t, census.Start("*/5 * * * *"))
	census.Stop()
}
