package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"vitals-alert/internal/config"
)

// Table names
const (
	TableVitalSigns  = "vital_signs"
	TableAlertEvents = "alert_events"
)

// CREATE TABLE statements. InnoDB + utf8mb4 throughout.
const (
	// createVitalSignsTableSQL mirrors the vital_signs.csv layout.
	createVitalSignsTableSQL = `
		CREATE TABLE IF NOT EXISTS vital_signs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			patient_id INT NOT NULL,
			recorded_at DATETIME NOT NULL,
			systolic INT NOT NULL,
			diastolic INT NOT NULL,
			heart_rate INT NOT NULL,
			temperature DECIMAL(4,1) NOT NULL,
			oxygen_saturation INT NOT NULL,
			respiratory_rate INT NOT NULL,
			INDEX idx_patient_recorded (patient_id, recorded_at DESC),
			INDEX idx_recorded_at (recorded_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
		COMMENT='sampled vital signs'
	`

	createAlertEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS alert_events (
			id VARCHAR(64) PRIMARY KEY,
			patient_id INT NOT NULL,
			band VARCHAR(16) NOT NULL,
			systolic INT NOT NULL,
			diastolic INT NOT NULL,
			message TEXT,
			target_phone VARCHAR(32),
			created_at DATETIME NOT NULL,
			INDEX idx_patient_created (patient_id, created_at DESC),
			INDEX idx_band (band)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
		COMMENT='blood pressure alerts'
	`
)

// MySQLDB wraps the connection pool and owns the schema.
type MySQLDB struct {
	*sql.DB
	logger *zap.Logger
}

// NewMySQLDB opens a pool from cfg and pings it. parseTime is required in
// the DSN for DATETIME scanning.
func NewMySQLDB(ctx context.Context, cfg config.MySQLConfig, logger *zap.Logger) (*MySQLDB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m := Wrap(db, logger)
	m.logger.Info("database connected")
	return m, nil
}

// Wrap adopts an already-open pool.
func Wrap(db *sql.DB, logger *zap.Logger) *MySQLDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLDB{DB: db, logger: logger.Named("mysql")}
}

func configureConnectionPool(db *sql.DB, cfg config.MySQLConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// InitTables creates all tables; safe to run repeatedly.
func (db *MySQLDB) InitTables(ctx context.Context) error {
	tables := []tableDefinition{
		{name: TableVitalSigns, sql: createVitalSignsTableSQL},
		{name: TableAlertEvents, sql: createAlertEventsTableSQL},
	}

	for _, table := range tables {
		if err := db.createTable(ctx, table); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	db.logger.Info("tables initialized")
	return nil
}

type tableDefinition struct {
	name string
	sql  string
}

func (db *MySQLDB) createTable(ctx context.Context, table tableDefinition) error {
	if _, err := db.ExecContext(ctx, table.sql); err != nil {
		db.logger.Error("create table failed", zap.String("table", table.name), zap.Error(err))
		return fmt.Errorf("failed to create table %s: %w", table.name, err)
	}
	return nil
}

// Close releases the pool.
func (db *MySQLDB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
