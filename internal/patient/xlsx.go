package patient

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	PatientsSheet    = "Patients"
	ResponsibleSheet = "Responsible Persons"
)

// WriteRosterXLSX writes the roster as a workbook with one sheet per table,
// for staff who read the roster in a spreadsheet.
func WriteRosterXLSX(w io.Writer, roster *Roster) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	patientRows := make([][]interface{}, 0, roster.Len())
	for _, p := range roster.Patients() {
		patientRows = append(patientRows, []interface{}{
			p.ID, p.Name, p.Surname, p.DateOfBirth.Format(DateLayout), p.Location,
			p.Responsible.ID, p.Responsible.FullName(), p.Responsible.PhoneNumber,
		})
	}
	patientHeader := append(append([]string{}, PatientsHeader...), "responsible_name", "responsible_phone")
	if err := writeSheet(f, PatientsSheet, patientHeader, patientRows, headerStyle); err != nil {
		return err
	}

	parties := roster.ResponsibleParties()
	partyRows := make([][]interface{}, 0, len(parties))
	for _, party := range parties {
		partyRows = append(partyRows, []interface{}{party.ID, party.Name, party.Surname, party.PhoneNumber})
	}
	if err := writeSheet(f, ResponsibleSheet, ResponsibleHeader, partyRows, headerStyle); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex(PatientsSheet); err == nil {
		f.SetActiveSheet(index)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
