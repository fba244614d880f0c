package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/recorder"
)

const csvLog = "patient_id,timestamp,systolic,diastolic,heart_rate,temperature,oxygen_saturation,respiratory_rate\n" +
	"1,2024-03-03 08:00:00,120,80,70,36.6,98,16\n" +
	"2,2024-03-03 08:00:00,190,115,88,36.9,97,18\n"

func newMigrator(t *testing.T, dryRun bool) (*DataMigrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DataMigrator{store: recorder.NewMySQLReadingStore(db), logger: zap.NewNop(), dryRun: dryRun}, mock
}

func writeLog(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "vital_signs.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvLog), 0o644))
	return path
}

func TestMigrateReadings(t *testing.T) {
	m, mock := newMigrator(t, false)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO vital_signs")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := m.MigrateReadings(context.Background(), writeLog(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateReadingsDryRun(t *testing.T) {
	m, mock := newMigrator(t, true)

	n, err := m.MigrateReadings(context.Background(), writeLog(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateReadingsMissingLog(t *testing.T) {
	m, _ := newMigrator(t, false)
	_, err := m.MigrateReadings(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func seedAlerts(t *testing.T) *recorder.RedisAlertStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := recorder.NewRedisAlertStore(client, "test", 0, time.Hour)
	at := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2"} {
		ev := alert.Event{ID: id, PatientID: i + 1, Band: alert.BandEmergency, Systolic: 190, Diastolic: 115,
			Message: "alert", TargetPhone: "+1", Timestamp: at.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.SaveAlert(context.Background(), ev))
	}
	return store
}

func TestMigrateAlertsSkipsFailedRows(t *testing.T) {
	source := seedAlerts(t)
	m, mock := newMigrator(t, false)

	mock.ExpectExec("INSERT INTO alert_events").WithArgs("a2", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO alert_events").WithArgs("a1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("Duplicate entry 'a1'"))

	copied, err := m.MigrateAlerts(context.Background(), source, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAlertsDryRun(t *testing.T) {
	m, mock := newMigrator(t, true)

	n, err := m.MigrateAlerts(context.Background(), seedAlerts(t), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
