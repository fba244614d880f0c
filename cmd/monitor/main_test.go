package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitals-alert/internal/cli"
)

func bootstrapFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPortFlagSatisfiesRequiredModem(t *testing.T) {
	cfg, _, err := cli.Bootstrap(bootstrapFile(t, "Modem:\n  Required: true\n"), "monitor")
	require.NoError(t, err)

	opts := options{port: "/dev/ttyUSB0"}
	require.NoError(t, opts.apply(&cfg, map[string]bool{"port": true}))
	assert.Equal(t, "/dev/ttyUSB0", cfg.Modem.PortName)
	assert.True(t, cfg.Modem.Required)
}

func TestRequiredModemWithoutPortRejected(t *testing.T) {
	cfg, _, err := cli.Bootstrap(bootstrapFile(t, "Modem:\n  Required: true\n"), "monitor")
	require.NoError(t, err)

	err = options{}.apply(&cfg, map[string]bool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Modem.PortName")
}

func TestIntervalFlagCheckedAgainstDuration(t *testing.T) {
	cfg, _, err := cli.Bootstrap(bootstrapFile(t, "Monitor:\n  Duration: 1m\n"), "monitor")
	require.NoError(t, err)

	opts := options{interval: 2 * time.Minute}
	assert.Error(t, opts.apply(&cfg, map[string]bool{"interval": true}))

	opts.duration = 10 * time.Minute
	require.NoError(t, opts.apply(&cfg, map[string]bool{"interval": true, "duration": true}))
	assert.Equal(t, 10*time.Minute, cfg.Monitor.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval)
}
