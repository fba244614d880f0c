package patient

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ==================== CSV layouts ====================

var (
	PatientsHeader    = []string{"id", "name", "surname", "date_of_birth", "room_number", "responsible_person_id"}
	ResponsibleHeader = []string{"id", "name", "surname", "phone_number"}
	VitalSignsHeader  = []string{"patient_id", "timestamp", "systolic", "diastolic", "heart_rate",
		"temperature", "oxygen_saturation", "respiratory_rate"}
)

// ==================== Export ====================

// WriteResponsibleCSV writes the responsible-party table with a header row.
func WriteResponsibleCSV(w io.Writer, roster *Roster) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ResponsibleHeader); err != nil {
		return err
	}
	for _, party := range roster.ResponsibleParties() {
		row := []string{strconv.Itoa(party.ID), party.Name, party.Surname, party.PhoneNumber}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePatientsCSV writes the patient table with a header row.
func WritePatientsCSV(w io.Writer, roster *Roster) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(PatientsHeader); err != nil {
		return err
	}
	for _, p := range roster.Patients() {
		row := []string{
			strconv.Itoa(p.ID),
			p.Name,
			p.Surname,
			p.DateOfBirth.Format(DateLayout),
			p.Location,
			strconv.Itoa(p.Responsible.ID),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveRosterCSV writes both roster tables to the given paths, creating parent
// directories as needed.
func SaveRosterCSV(roster *Roster, patientsPath, responsiblePath string) error {
	if err := writeFile(responsiblePath, func(w io.Writer) error { return WriteResponsibleCSV(w, roster) }); err != nil {
		return fmt.Errorf("save responsible persons: %w", err)
	}
	if err := writeFile(patientsPath, func(w io.Writer) error { return WritePatientsCSV(w, roster) }); err != nil {
		return fmt.Errorf("save patients: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ==================== Import ====================

// ReadRosterCSV builds a roster from the two tables.
func ReadRosterCSV(patients, responsible io.Reader) (*Roster, error) {
	partyRows, err := readTable(responsible, ResponsibleHeader)
	if err != nil {
		return nil, fmt.Errorf("responsible persons: %w", err)
	}

	parties := make([]ResponsibleParty, 0, len(partyRows))
	for line, row := range partyRows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("responsible persons row %d: bad id %q", line+2, row[0])
		}
		parties = append(parties, ResponsibleParty{ID: id, Name: row[1], Surname: row[2], PhoneNumber: row[3]})
	}

	patientRows, err := readTable(patients, PatientsHeader)
	if err != nil {
		return nil, fmt.Errorf("patients: %w", err)
	}

	byID := make(map[int]*ResponsibleParty, len(parties))
	for i := range parties {
		byID[parties[i].ID] = &parties[i]
	}

	list := make([]Patient, 0, len(patientRows))
	for line, row := range patientRows {
		p, err := parsePatientRow(row, byID)
		if err != nil {
			return nil, fmt.Errorf("patients row %d: %w", line+2, err)
		}
		list = append(list, p)
	}

	return NewRoster(parties, list)
}

// LoadRosterCSV opens and reads both roster files.
func LoadRosterCSV(patientsPath, responsiblePath string) (*Roster, error) {
	pf, err := os.Open(patientsPath)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	rf, err := os.Open(responsiblePath)
	if err != nil {
		return nil, err
	}
	defer rf.Close()

	return ReadRosterCSV(pf, rf)
}

func parsePatientRow(row []string, parties map[int]*ResponsibleParty) (Patient, error) {
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return Patient{}, fmt.Errorf("bad id %q", row[0])
	}
	dob, err := time.Parse(DateLayout, row[3])
	if err != nil {
		return Patient{}, fmt.Errorf("bad date_of_birth %q", row[3])
	}
	partyID, err := strconv.Atoi(row[5])
	if err != nil {
		return Patient{}, fmt.Errorf("bad responsible_person_id %q", row[5])
	}
	party, ok := parties[partyID]
	if !ok {
		return Patient{}, fmt.Errorf("responsible person %d: %w", partyID, ErrUnknownResponsible)
	}
	return Patient{ID: id, Name: row[1], Surname: row[2], DateOfBirth: dob, Location: row[4], Responsible: party}, nil
}

// readTable reads all rows and checks the header matches want.
func readTable(r io.Reader, want []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(want)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	if strings.Join(rows[0], ",") != strings.Join(want, ",") {
		return nil, fmt.Errorf("unexpected header %v", rows[0])
	}
	return rows[1:], nil
}

// ==================== Vital signs rows ====================

// VitalSignsRow formats a reading for the vital-sign log.
func VitalSignsRow(r Reading) []string {
	return []string{
		strconv.Itoa(r.PatientID),
		r.Timestamp.Format(TimestampLayout),
		strconv.Itoa(r.Systolic),
		strconv.Itoa(r.Diastolic),
		strconv.Itoa(r.HeartRate),
		strconv.FormatFloat(r.Temperature, 'f', 1, 64),
		strconv.Itoa(r.OxygenSaturation),
		strconv.Itoa(r.RespiratoryRate),
	}
}

// ParseVitalSignsRow is the inverse of VitalSignsRow. Timestamps are read in
// local time, matching how they were written.
func ParseVitalSignsRow(row []string) (Reading, error) {
	if len(row) != len(VitalSignsHeader) {
		return Reading{}, fmt.Errorf("expected %d fields, got %d", len(VitalSignsHeader), len(row))
	}

	ints := make([]int, 0, 6)
	for _, idx := range []int{0, 2, 3, 4, 6, 7} {
		v, err := strconv.Atoi(row[idx])
		if err != nil {
			return Reading{}, fmt.Errorf("field %s: bad integer %q", VitalSignsHeader[idx], row[idx])
		}
		ints = append(ints, v)
	}

	ts, err := time.ParseInLocation(TimestampLayout, row[1], time.Local)
	if err != nil {
		return Reading{}, fmt.Errorf("bad timestamp %q", row[1])
	}
	temp, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("bad temperature %q", row[5])
	}

	return Reading{
		PatientID:        ints[0],
		Timestamp:        ts,
		Systolic:         ints[1],
		Diastolic:        ints[2],
		HeartRate:        ints[3],
		Temperature:      temp,
		OxygenSaturation: ints[4],
		RespiratoryRate:  ints[5],
	}, nil
}
