package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Connection options applied to every SQLite handle. busy_timeout makes
// concurrent writers wait for the lock instead of failing with SQLITE_BUSY.
const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// New opens a SQLite database and verifies it is reachable.
func New(path string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	return db, nil
}

// WithConn acquires a dedicated connection for the duration of fn and
// releases it on every exit path.
func WithConn(ctx context.Context, db *sqlx.DB, fn func(conn *sqlx.Conn) error) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// MigrateUsers creates the users table if it does not exist.
func MigrateUsers(db *sqlx.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// MigratePatients creates the patients table if it does not exist.
func MigratePatients(db *sqlx.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		dob TEXT NOT NULL,
		gender TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		patient_type TEXT NOT NULL,
		admission_date TEXT NOT NULL,
		primary_condition TEXT NOT NULL,
		condition_severity TEXT NOT NULL,
		current_status TEXT NOT NULL,
		medications TEXT,
		notes TEXT,
		photo TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_patients_admission_date ON patients (admission_date);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// IsUniqueViolation reports whether err was raised by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended result codes disabled on this connection.
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
