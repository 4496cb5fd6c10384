package services

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/dr-oncall-be/internal/database"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "hospital.db"), 4)
	require.NoError(t, err)
	require.NoError(t, database.MigrateUsers(db))
	require.NoError(t, database.MigratePatients(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func samplePatient(admissionDate string) models.Patient {
	return models.Patient{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		DOB:               "1985-12-10",
		Gender:            "female",
		Address:           "12 St James's Square, London",
		Phone:             "+44 20 7946 0000",
		Email:             strPtr("ada@example.com"),
		PatientType:       "inpatient",
		AdmissionDate:     admissionDate,
		PrimaryCondition:  "pneumonia",
		ConditionSeverity: "moderate",
		CurrentStatus:     "stable",
		Medications:       strPtr("amoxicillin"),
		Notes:             nil,
		Photo:             strPtr("/static/photos/ada.jpg"),
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *recordingNotifier) Publish(action string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}
