package cli

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOrdersUSBFirst(t *testing.T) {
	detector := &SerialPortDetector{
		operatingSystem: "linux",
		glob: func(pattern string) ([]string, error) {
			switch pattern {
			case "/dev/ttyUSB*":
				return []string{"/dev/ttyUSB1", "/dev/ttyUSB0"}, nil
			case "/dev/ttyS*":
				return []string{"/dev/ttyS0"}, nil
			}
			return nil, errors.New("bad pattern")
		},
	}

	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyS0"}, detector.Detect())
}

func TestDetectSkipsOtherSystems(t *testing.T) {
	called := false
	detector := &SerialPortDetector{
		operatingSystem: "darwin",
		glob: func(string) ([]string, error) {
			called = true
			return nil, nil
		},
	}
	assert.Empty(t, detector.Detect())
	assert.False(t, called)
}

func TestBootstrapMissingConfigUsesDefaults(t *testing.T) {
	cfg, log, err := Bootstrap(filepath.Join(t.TempDir(), "absent.yaml"), "test")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, "vitals-alert", cfg.App.ServiceName)
}

func TestBootstrapLeavesValidationToTheTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Modem:\n  Required: true\n"), 0o644))

	cfg, _, err := Bootstrap(path, "test")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestBootstrapMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Modem: [unclosed"), 0o644))

	_, _, err := Bootstrap(path, "test")
	assert.Error(t, err)
}

func TestFlagsSet(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.String("port", "", "")
	fs.Duration("interval", time.Second, "")
	require.NoError(t, fs.Parse([]string{"-port", "/dev/ttyUSB0"}))

	set := FlagsSet(fs)
	assert.True(t, set["port"])
	assert.False(t, set["interval"])
}

func TestSignalHandlerCancels(t *testing.T) {
	handler := NewSignalHandler(context.Background())
	defer handler.Stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-handler.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
