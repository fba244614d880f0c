// Command migrate prepares the MySQL schema and backfills it from the
// vital-sign CSV log and the Redis alert history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/cli"
	"vitals-alert/internal/config"
	"vitals-alert/internal/database"
	"vitals-alert/internal/patient"
	"vitals-alert/internal/recorder"
)

var (
	configFile = flag.String("config", cli.DefaultConfigPath, "path to the YAML config")
	mode       = flag.String("mode", "readings", "what to migrate: readings|alerts|schema")
	csvPath    = flag.String("csv", "", "vital-sign CSV log to import (default: Roster.VitalSignsCSV)")
	alertLimit = flag.Int64("limit", 1000, "newest alerts to copy from redis")
	dryRun     = flag.Bool("dry-run", false, "report what would be migrated without writing")
)

// ReadingImporter is the bulk side of the MySQL reading store.
type ReadingImporter interface {
	ImportReadings(ctx context.Context, readings []patient.Reading) (int, error)
}

// AlertSaver stores one alert.
type AlertSaver interface {
	SaveAlert(ctx context.Context, ev alert.Event) error
}

// AlertSource lists alerts, newest first.
type AlertSource interface {
	QueryAlerts(ctx context.Context, patientID int, limit int64) ([]alert.Event, error)
}

func main() {
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(*configFile, "migrate")
	if err != nil {
		cli.Fatal(2, "migrate: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Storage.MySQL.DSN == "" {
		return fmt.Errorf("Storage.MySQL.DSN is empty")
	}

	mysqlDB, err := database.NewMySQLDB(ctx, cfg.Storage.MySQL, logger)
	if err != nil {
		return err
	}
	defer mysqlDB.Close()

	if err := mysqlDB.InitTables(ctx); err != nil {
		return err
	}

	migrator := &DataMigrator{
		store:  recorder.NewMySQLReadingStore(mysqlDB.DB),
		logger: logger,
		dryRun: *dryRun,
	}

	switch *mode {
	case "schema":
		logger.Info("schema ready")
		return nil
	case "readings":
		path := *csvPath
		if path == "" {
			path = cfg.Roster.VitalSignsCSV
		}
		_, err := migrator.MigrateReadings(ctx, path)
		return err
	case "alerts":
		if cfg.Storage.RedisAddr == "" {
			return fmt.Errorf("Storage.RedisAddr is empty")
		}
		rc := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		defer rc.Close()
		source := recorder.NewRedisAlertStore(rc, cfg.Storage.Namespace, 0, cfg.Storage.TTL)
		_, err := migrator.MigrateAlerts(ctx, source, *alertLimit)
		return err
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
}

// DataMigrator copies data into MySQL.
type DataMigrator struct {
	store interface {
		ReadingImporter
		AlertSaver
	}
	logger *zap.Logger
	dryRun bool
}

// MigrateReadings imports every row of the CSV log in one transaction.
func (m *DataMigrator) MigrateReadings(ctx context.Context, path string) (int, error) {
	readings, err := recorder.LoadVitalSignsLog(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	if m.dryRun {
		m.logger.Info("dry run: readings not imported", zap.String("path", path), zap.Int("count", len(readings)))
		return len(readings), nil
	}

	imported, err := m.store.ImportReadings(ctx, readings)
	if err != nil {
		return 0, err
	}
	m.logger.Info("readings imported", zap.String("path", path), zap.Int("count", imported))
	return imported, nil
}

// MigrateAlerts copies the newest alerts from source. Rows that fail to
// insert (typically ones copied by an earlier run) are counted and skipped.
func (m *DataMigrator) MigrateAlerts(ctx context.Context, source AlertSource, limit int64) (int, error) {
	events, err := source.QueryAlerts(ctx, 0, limit)
	if err != nil {
		return 0, err
	}

	if m.dryRun {
		m.logger.Info("dry run: alerts not copied", zap.Int("count", len(events)))
		return len(events), nil
	}

	copied, skipped := 0, 0
	for _, ev := range events {
		if err := m.store.SaveAlert(ctx, ev); err != nil {
			m.logger.Debug("alert skipped", zap.String("id", ev.ID), zap.Error(err))
			skipped++
			continue
		}
		copied++
	}
	m.logger.Info("alerts copied", zap.Int("copied", copied), zap.Int("skipped", skipped))
	return copied, nil
}
