package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/dr-oncall-be/internal/database"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// DefaultRecentLimit is used by RecentPatients callers that omit a limit.
const DefaultRecentLimit = 5

// Registry change notifications.
const (
	ActionPatientCreated = "patient.created"
	ActionPatientDeleted = "patient.deleted"
)

// Notifier receives registry change notifications. Delivery is best effort.
type Notifier interface {
	Publish(action string, payload interface{})
}

// PatientServiceProvider defines the interface for patient registry services.
type PatientServiceProvider interface {
	ListPatients(ctx context.Context) ([]models.Patient, error)
	GetPatient(ctx context.Context, id int64) (models.Patient, error)
	AddPatient(ctx context.Context, patient models.Patient) (int64, error)
	DeletePatient(ctx context.Context, id int64) error
	CountPatients(ctx context.Context, patientType string) (int, error)
	CountByStatus(ctx context.Context, status *string) (int, error)
	RecentPatients(ctx context.Context, limit int) ([]models.Patient, error)
}

// PatientService provides business logic for the patient registry.
type PatientService struct {
	db       *sqlx.DB
	notifier Notifier
	now      func() time.Time
}

// NewPatientService creates a new PatientService. notifier may be nil.
func NewPatientService(db *sqlx.DB, notifier Notifier) *PatientService {
	return &PatientService{db: db, notifier: notifier, now: time.Now}
}

const patientColumns = `id, first_name, last_name, dob, gender, address, phone, email,
	patient_type, admission_date, primary_condition, condition_severity,
	current_status, medications, notes, photo, created_at`

// ListPatients returns every patient, most recently admitted first.
func (s *PatientService) ListPatients(ctx context.Context) ([]models.Patient, error) {
	patients := []models.Patient{}
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &patients,
			"SELECT "+patientColumns+" FROM patients ORDER BY admission_date DESC, id DESC")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// GetPatient retrieves a single patient by ID.
func (s *PatientService) GetPatient(ctx context.Context, id int64) (models.Patient, error) {
	var patient models.Patient
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &patient, "SELECT "+patientColumns+" FROM patients WHERE id = ?", id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.Patient{}, ErrNotFound
	}
	if err != nil {
		return models.Patient{}, fmt.Errorf("failed to get patient %d: %w", id, err)
	}
	return patient, nil
}

// AddPatient validates and inserts a new patient and returns its ID. The ID
// and created_at of the input are ignored.
func (s *PatientService) AddPatient(ctx context.Context, patient models.Patient) (int64, error) {
	if err := validateStruct(patient); err != nil {
		return 0, err
	}
	patient.CreatedAt = s.now().UTC().Format(models.CreatedAtLayout)

	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO patients (
				first_name, last_name, dob, gender, address, phone, email,
				patient_type, admission_date, primary_condition, condition_severity,
				current_status, medications, notes, photo, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			patient.FirstName, patient.LastName, patient.DOB, patient.Gender,
			patient.Address, patient.Phone, nullable(patient.Email), patient.PatientType,
			patient.AdmissionDate, patient.PrimaryCondition, patient.ConditionSeverity,
			patient.CurrentStatus, nullable(patient.Medications), nullable(patient.Notes), nullable(patient.Photo),
			patient.CreatedAt,
		)
		if err != nil {
			return err
		}
		patient.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert patient: %w", err)
	}

	s.publish(ActionPatientCreated, patient)
	return patient.ID, nil
}

// DeletePatient removes a patient. Deleting a missing ID is not an error.
func (s *PatientService) DeletePatient(ctx context.Context, id int64) error {
	var affected int64
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, "DELETE FROM patients WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete patient %d: %w", id, err)
	}

	if affected > 0 {
		s.publish(ActionPatientDeleted, map[string]int64{"id": id})
	}
	return nil
}

// CountPatients counts all patients, or only those of patientType when it is
// not empty.
func (s *PatientService) CountPatients(ctx context.Context, patientType string) (int, error) {
	query, args := "SELECT COUNT(*) FROM patients", []interface{}{}
	if patientType != "" {
		query += " WHERE patient_type = ?"
		args = append(args, patientType)
	}
	return s.count(ctx, query, args...)
}

// CountByStatus counts patients whose current_status equals status. A nil
// status compares against NULL and therefore matches nothing.
func (s *PatientService) CountByStatus(ctx context.Context, status *string) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM patients WHERE current_status = ?", nullable(status))
}

// RecentPatients returns up to limit patients, most recently admitted first.
func (s *PatientService) RecentPatients(ctx context.Context, limit int) ([]models.Patient, error) {
	if limit <= 0 {
		return nil, &ValidationError{Fields: []string{"limit"}}
	}

	patients := []models.Patient{}
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &patients,
			"SELECT "+patientColumns+" FROM patients ORDER BY admission_date DESC, id DESC LIMIT ?", limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent patients: %w", err)
	}
	return patients, nil
}

func (s *PatientService) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &n, query, args...)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}

func (s *PatientService) publish(action string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(action, payload)
	}
}

// nullable maps a nil pointer to SQL NULL.
func nullable(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
