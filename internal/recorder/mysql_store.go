package recorder

import (
	"context"
	"database/sql"
	"fmt"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/patient"
)

const (
	sqlInsertReading = `INSERT INTO vital_signs
		(patient_id, recorded_at, systolic, diastolic, heart_rate, temperature, oxygen_saturation, respiratory_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlInsertAlert = `INSERT INTO alert_events
		(id, patient_id, band, systolic, diastolic, message, target_phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecentReadings = `SELECT patient_id, recorded_at, systolic, diastolic, heart_rate, temperature,
		oxygen_saturation, respiratory_rate
		FROM vital_signs WHERE patient_id = ? ORDER BY recorded_at DESC LIMIT ?`
)

// MySQLReadingStore writes readings and alerts to the tables created by
// database.MySQLDB.InitTables.
type MySQLReadingStore struct {
	db *sql.DB
}

func NewMySQLReadingStore(db *sql.DB) *MySQLReadingStore {
	return &MySQLReadingStore{db: db}
}

// SaveReading inserts one row into vital_signs.
func (store *MySQLReadingStore) SaveReading(ctx context.Context, r patient.Reading) error {
	if _, err := store.db.ExecContext(ctx, sqlInsertReading, readingArgs(r)...); err != nil {
		return fmt.Errorf("insert reading failed: %w", err)
	}
	return nil
}

// SaveAlert inserts one row into alert_events.
func (store *MySQLReadingStore) SaveAlert(ctx context.Context, ev alert.Event) error {
	_, err := store.db.ExecContext(ctx, sqlInsertAlert,
		ev.ID, ev.PatientID, ev.Band.String(), ev.Systolic, ev.Diastolic, ev.Message, ev.TargetPhone, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert alert failed: %w", err)
	}
	return nil
}

// ImportReadings inserts readings in one transaction and returns the count.
func (store *MySQLReadingStore) ImportReadings(ctx context.Context, readings []patient.Reading) (int, error) {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import failed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqlInsertReading)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare import failed: %w", err)
	}
	defer stmt.Close()

	for i, r := range readings {
		if _, err := stmt.ExecContext(ctx, readingArgs(r)...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("import reading %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import failed: %w", err)
	}
	return len(readings), nil
}

// RecentReadings returns up to limit readings for a patient, newest first.
func (store *MySQLReadingStore) RecentReadings(ctx context.Context, patientID, limit int) ([]patient.Reading, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	rows, err := store.db.QueryContext(ctx, sqlRecentReadings, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings failed: %w", err)
	}
	defer rows.Close()

	var readings []patient.Reading
	for rows.Next() {
		var r patient.Reading
		if err := rows.Scan(&r.PatientID, &r.Timestamp, &r.Systolic, &r.Diastolic, &r.HeartRate,
			&r.Temperature, &r.OxygenSaturation, &r.RespiratoryRate); err != nil {
			return nil, fmt.Errorf("scan reading failed: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func readingArgs(r patient.Reading) []interface{} {
	return []interface{}{
		r.PatientID, r.Timestamp, r.Systolic, r.Diastolic, r.HeartRate,
		r.Temperature, r.OxygenSaturation, r.RespiratoryRate,
	}
}
