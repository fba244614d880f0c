package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")

	data := `
Modem:
  PortName: /dev/ttyUSB2
Monitor:
  Interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB2", cfg.Modem.PortName)
	assert.Equal(t, DefaultSettleDelay, cfg.Modem.SettleDelay)
	assert.Equal(t, DefaultResponseDelay, cfg.Modem.ResponseDelay)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, DefaultMonitorDuration, cfg.Monitor.Duration)
	assert.Equal(t, DefaultVitalSignsCSV, cfg.Roster.VitalSignsCSV)
	assert.Equal(t, DefaultRedisNamespace, cfg.Storage.Namespace)
	assert.Equal(t, DefaultNSQTopic, cfg.NSQ.Topic)
	assert.Equal(t, DefaultHTTPAddress, cfg.HTTP.Addr)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.Modem.PortName)
}

func TestValidateRequiredModemWithoutPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Modem:\n  Required: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err, "a port may still come from the command line")

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Modem.PortName")

	cfg.Modem.PortName = "/dev/ttyUSB0"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsIntervalLongerThanDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	data := "Monitor:\n  Duration: 10s\n  Interval: 1m\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Monitor.Interval = 5 * time.Second
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Modem: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
