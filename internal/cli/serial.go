package cli

import (
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
)

// serialDevicePatterns are the device nodes USB GSM modems usually show up as.
var serialDevicePatterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"}

// SerialPortDetector lists candidate modem ports. It only looks on Linux.
type SerialPortDetector struct {
	operatingSystem string
	glob            func(pattern string) ([]string, error)
}

func NewSerialPortDetector() *SerialPortDetector {
	return &SerialPortDetector{operatingSystem: runtime.GOOS, glob: filepath.Glob}
}

// Detect returns candidate device paths, USB devices first.
func (detector *SerialPortDetector) Detect() []string {
	if detector.operatingSystem != "linux" {
		return nil
	}

	var devices []string
	for _, pattern := range serialDevicePatterns {
		matches, err := detector.glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		devices = append(devices, matches...)
	}
	return devices
}

// LogCandidates logs what Detect finds so the operator can pick a -port.
func (detector *SerialPortDetector) LogCandidates(logger *zap.Logger) {
	if detector.operatingSystem != "linux" {
		return
	}

	devices := detector.Detect()
	if len(devices) == 0 {
		logger.Info("no serial devices found; is the modem plugged in?")
		return
	}
	logger.Info("serial devices available", zap.Strings("devices", devices))
}
