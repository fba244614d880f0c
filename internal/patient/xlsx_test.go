package patient

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRosterXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRosterXLSX(&buf, DefaultRoster()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PatientsSheet, ResponsibleSheet}, f.GetSheetList())

	rows, err := f.GetRows(PatientsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 11)
	assert.Equal(t, "responsible_phone", rows[0][7])
	assert.Equal(t, []string{"1", "Alice", "Garcia", "1975-05-15", "101", "1", "Driton Alija", "+38344922805"}, rows[1])

	parties, err := f.GetRows(ResponsibleSheet)
	require.NoError(t, err)
	assert.Len(t, parties, 6)
	assert.Equal(t, ResponsibleHeader, parties[0])
}
