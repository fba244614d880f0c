package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"vitals-alert/internal/config"
	"vitals-alert/internal/patient"
)

func tempRosterConfig(t *testing.T) config.Roster {
	dir := t.TempDir()
	return config.Roster{
		PatientsCSV:    filepath.Join(dir, "patients.csv"),
		ResponsibleCSV: filepath.Join(dir, "responsible_persons.csv"),
	}
}

func TestRunPrintsBuiltInRoster(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(tempRosterConfig(t), options{}, &out, zap.NewNop()))

	assert.Contains(t, out.String(), "=== Patients ===")
	assert.Contains(t, out.String(), "Alice Garcia")
	assert.Contains(t, out.String(), "Driton Alija")
	assert.Contains(t, out.String(), "+38344922805")
}

func TestRunExportThenImport(t *testing.T) {
	cfg := tempRosterConfig(t)

	require.NoError(t, run(cfg, options{exportCSV: true}, io.Discard, zap.NewNop()))
	assert.FileExists(t, cfg.PatientsCSV)
	assert.FileExists(t, cfg.ResponsibleCSV)

	var out bytes.Buffer
	require.NoError(t, run(cfg, options{fromCSV: true}, &out, zap.NewNop()))
	assert.Contains(t, out.String(), "Alice Garcia")
}

func TestRunImportMissingFiles(t *testing.T) {
	err := run(tempRosterConfig(t), options{fromCSV: true}, io.Discard, zap.NewNop())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "roster.xlsx")
	require.NoError(t, run(tempRosterConfig(t), options{xlsxPath: path}, io.Discard, zap.NewNop()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(patient.PatientsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, patient.DefaultRoster().Len()+1)
}
