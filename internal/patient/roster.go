package patient

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateID        = errors.New("duplicate id")
	ErrMissingResponsible = errors.New("patient has no responsible party")
	ErrUnknownResponsible = errors.New("responsible party is not in the roster")
)

// Roster is the read-only repository of patients and responsible parties for
// one monitoring session. It is built once and shared by reference; nothing
// mutates it after construction.
type Roster struct {
	parties    []ResponsibleParty
	patients   []Patient
	partyIndex map[int]int
	index      map[int]int
}

// NewRoster validates the reference data and builds the repository. Every
// patient must point at a party present in parties; patient.Responsible is
// rebound to the roster's own copy so later changes to the inputs are not
// visible.
func NewRoster(parties []ResponsibleParty, patients []Patient) (*Roster, error) {
	r := &Roster{
		parties:    make([]ResponsibleParty, len(parties)),
		patients:   make([]Patient, 0, len(patients)),
		partyIndex: make(map[int]int, len(parties)),
		index:      make(map[int]int, len(patients)),
	}

	copy(r.parties, parties)
	for i, party := range r.parties {
		if _, exists := r.partyIndex[party.ID]; exists {
			return nil, fmt.Errorf("responsible party %d: %w", party.ID, ErrDuplicateID)
		}
		r.partyIndex[party.ID] = i
	}

	for _, p := range patients {
		if _, exists := r.index[p.ID]; exists {
			return nil, fmt.Errorf("patient %d: %w", p.ID, ErrDuplicateID)
		}
		if p.Responsible == nil {
			return nil, fmt.Errorf("patient %d: %w", p.ID, ErrMissingResponsible)
		}
		partyPos, ok := r.partyIndex[p.Responsible.ID]
		if !ok {
			return nil, fmt.Errorf("patient %d -> party %d: %w", p.ID, p.Responsible.ID, ErrUnknownResponsible)
		}
		p.Responsible = &r.parties[partyPos]
		r.index[p.ID] = len(r.patients)
		r.patients = append(r.patients, p)
	}

	return r, nil
}

// Patients returns the patients in roster order.
func (r *Roster) Patients() []Patient {
	out := make([]Patient, len(r.patients))
	copy(out, r.patients)
	return out
}

// Patient looks a patient up by id.
func (r *Roster) Patient(id int) (Patient, bool) {
	pos, ok := r.index[id]
	if !ok {
		return Patient{}, false
	}
	return r.patients[pos], true
}

// ResponsibleParties returns the parties in roster order.
func (r *Roster) ResponsibleParties() []ResponsibleParty {
	out := make([]ResponsibleParty, len(r.parties))
	copy(out, r.parties)
	return out
}

// ResponsibleParty looks a party up by id.
func (r *Roster) ResponsibleParty(id int) (ResponsibleParty, bool) {
	pos, ok := r.partyIndex[id]
	if !ok {
		return ResponsibleParty{}, false
	}
	return r.parties[pos], true
}

// Len is the number of patients.
func (r *Roster) Len() int {
	return len(r.patients)
}

// DefaultRoster is the built-in demo ward: five doctors, ten patients.
func DefaultRoster() *Roster {
	parties := []ResponsibleParty{
		{ID: 1, Name: "Driton", Surname: "Alija", PhoneNumber: "+38344922805"},
		{ID: 2, Name: "Sarah", Surname: "Johnson", PhoneNumber: "+38344922805"},
		{ID: 3, Name: "David", Surname: "Williams", PhoneNumber: "+38344922805"},
		{ID: 4, Name: "Emily", Surname: "Brown", PhoneNumber: "+38344922805"},
		{ID: 5, Name: "Michael", Surname: "Jones", PhoneNumber: "+38344922805"},
	}

	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	patients := []Patient{
		{ID: 1, Name: "Alice", Surname: "Garcia", DateOfBirth: date(1975, time.May, 15), Location: "101", Responsible: &parties[0]},
		{ID: 2, Name: "Bob", Surname: "Miller", DateOfBirth: date(1982, time.August, 22), Location: "102", Responsible: &parties[1]},
		{ID: 3, Name: "Charlie", Surname: "Davis", DateOfBirth: date(1968, time.March, 10), Location: "103", Responsible: &parties[2]},
		{ID: 4, Name: "Diana", Surname: "Rodriguez", DateOfBirth: date(1990, time.November, 28), Location: "201", Responsible: &parties[0]},
		{ID: 5, Name: "Edward", Surname: "Martinez", DateOfBirth: date(1955, time.July, 4), Location: "202", Responsible: &parties[3]},
		{ID: 6, Name: "Fiona", Surname: "Anderson", DateOfBirth: date(1972, time.January, 19), Location: "203", Responsible: &parties[4]},
		{ID: 7, Name: "George", Surname: "Thomas", DateOfBirth: date(1988, time.September, 2), Location: "301", Responsible: &parties[1]},
		{ID: 8, Name: "Helen", Surname: "Jackson", DateOfBirth: date(1960, time.December, 25), Location: "302", Responsible: &parties[2]},
		{ID: 9, Name: "Ian", Surname: "White", DateOfBirth: date(1995, time.April, 8), Location: "303", Responsible: &parties[3]},
		{ID: 10, Name: "Julia", Surname: "Harris", DateOfBirth: date(1980, time.June, 17), Location: "304", Responsible: &parties[4]},
	}

	roster, err := NewRoster(parties, patients)
	if err != nil {
		panic(fmt.Sprintf("built-in roster is invalid: %v", err))
	}
	return roster
}
