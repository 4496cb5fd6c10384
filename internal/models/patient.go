package models

// Patient is a single record in the patient registry. JSON names match the
// column names.
type Patient struct {
	ID                int64   `db:"id" json:"id"`
	FirstName         string  `db:"first_name" json:"first_name" validate:"required,notblank"`
	LastName          string  `db:"last_name" json:"last_name" validate:"required,notblank"`
	DOB               string  `db:"dob" json:"dob" validate:"required,notblank"`
	Gender            string  `db:"gender" json:"gender" validate:"required,notblank"`
	Address           string  `db:"address" json:"address" validate:"required,notblank"`
	Phone             string  `db:"phone" json:"phone" validate:"required,notblank"`
	Email             *string `db:"email" json:"email"`
	PatientType       string  `db:"patient_type" json:"patient_type" validate:"required,notblank"`
	AdmissionDate     string  `db:"admission_date" json:"admission_date" validate:"required,notblank"`
	PrimaryCondition  string  `db:"primary_condition" json:"primary_condition" validate:"required,notblank"`
	ConditionSeverity string  `db:"condition_severity" json:"condition_severity" validate:"required,notblank"`
	CurrentStatus     string  `db:"current_status" json:"current_status" validate:"required,notblank"`
	Medications       *string `db:"medications" json:"medications"`
	Notes             *string `db:"notes" json:"notes"`
	Photo             *string `db:"photo" json:"photo"` // path or URL
	CreatedAt         string  `db:"created_at" json:"created_at"`
}

// CreatedAtLayout is the storage format of Patient.CreatedAt, matching
// SQLite's CURRENT_TIMESTAMP.
const CreatedAtLayout = "2006-01-02 15:04:05"
