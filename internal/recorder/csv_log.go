package recorder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"vitals-alert/internal/patient"
)

// VitalSignsLog appends readings to a CSV file. The header row is written
// only when the file is new or empty.
type VitalSignsLog struct {
	mu   sync.Mutex
	path string
}

func NewVitalSignsLog(path string) *VitalSignsLog {
	return &VitalSignsLog{path: path}
}

// Path returns the log file location.
func (l *VitalSignsLog) Path() string { return l.path }

// SaveReading appends one row.
func (l *VitalSignsLog) SaveReading(_ context.Context, r patient.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open vital signs log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat vital signs log: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(patient.VitalSignsHeader); err != nil {
			f.Close()
			return err
		}
	}
	if err := writer.Write(patient.VitalSignsRow(r)); err != nil {
		f.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadVitalSignsLog parses a log written by VitalSignsLog.
func ReadVitalSignsLog(r io.Reader) ([]patient.Reading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(patient.VitalSignsHeader)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header[0] != patient.VitalSignsHeader[0] {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var readings []patient.Reading
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return readings, nil
		}
		if err != nil {
			return nil, err
		}
		reading, err := patient.ParseVitalSignsRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, reading)
	}
}

// LoadVitalSignsLog opens path and reads it.
func LoadVitalSignsLog(path string) ([]patient.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadVitalSignsLog(f)
}
