package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitals-alert/internal/config"
	"vitals-alert/internal/patient"
)

func rosterConfig(dir string) config.Roster {
	return config.Roster{
		PatientsCSV:    filepath.Join(dir, "patients.csv"),
		ResponsibleCSV: filepath.Join(dir, "responsible_persons.csv"),
		VitalSignsCSV:  filepath.Join(dir, "vital_signs.csv"),
		LoadFromCSV:    true,
	}
}

func TestLoadRosterWritesDefaultWhenMissing(t *testing.T) {
	cfg := rosterConfig(t.TempDir())

	roster, err := loadRoster(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, patient.DefaultRoster().Len(), roster.Len())
	assert.FileExists(t, cfg.PatientsCSV)
	assert.FileExists(t, cfg.ResponsibleCSV)

	again, err := loadRoster(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, roster.Len(), again.Len())
}

func TestLoadRosterRejectsBrokenFile(t *testing.T) {
	cfg := rosterConfig(t.TempDir())
	require.NoError(t, os.WriteFile(cfg.PatientsCSV, []byte("nonsense\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg.ResponsibleCSV, []byte("id,name,surname,phone_number\n"), 0o644))

	_, err := loadRoster(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadRosterBuiltIn(t *testing.T) {
	roster, err := loadRoster(config.Roster{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 10, roster.Len())
}

func TestInitAppContextEvaluationOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Modem.PortName = ""

	app, err := InitAppContext(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Driver)
	assert.True(t, app.Sinks.Empty())
	assert.False(t, app.Board.Modem().Connected)
	assert.NotNil(t, app.router())
}

func TestInitAppContextMissingPortOptional(t *testing.T) {
	cfg := config.Default()
	cfg.Modem.PortName = filepath.Join(t.TempDir(), "no-such-tty")

	app, err := InitAppContext(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.Driver)
}

func TestInitAppContextMissingPortRequired(t *testing.T) {
	cfg := config.Default()
	cfg.Modem.PortName = filepath.Join(t.TempDir(), "no-such-tty")
	cfg.Modem.Required = true

	_, err := InitAppContext(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestInitAppContextWiresRedisAndLog(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Modem.PortName = ""
	cfg.Storage.RedisAddr = mr.Addr()
	cfg.Roster = rosterConfig(t.TempDir())
	cfg.Roster.LoadFromCSV = false
	cfg.Roster.LogVitalSigns = true

	app, err := InitAppContext(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.AlertHistory)
	assert.False(t, app.Sinks.Empty())
	assert.Len(t, app.loopOptions(), 8)
}

func TestInitAppContextSkipsUnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Modem.PortName = ""
	cfg.Storage.RedisAddr = "127.0.0.1:1"

	app, err := InitAppContext(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.RedisClient)
	assert.True(t, app.Sinks.Empty())
}
