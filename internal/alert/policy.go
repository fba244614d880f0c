package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vitals-alert/internal/patient"
)

// Band is a blood-pressure severity tier.
type Band int

const (
	BandNone Band = iota
	BandModerate
	BandEmergency
)

func (b Band) String() string {
	switch b {
	case BandModerate:
		return "MODERATE"
	case BandEmergency:
		return "EMERGENCY"
	default:
		return "NONE"
	}
}

// MarshalText lets Band appear by name in JSON payloads.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (b *Band) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE":
		*b = BandNone
	case "MODERATE":
		*b = BandModerate
	case "EMERGENCY":
		*b = BandEmergency
	default:
		return fmt.Errorf("unknown band %q", text)
	}
	return nil
}

// Thresholds in mmHg; bounds are inclusive.
const (
	EmergencySystolicMin  = 180
	EmergencyDiastolicMin = 110

	ModerateSystolicMin  = 160
	ModerateSystolicMax  = 179
	ModerateDiastolicMin = 100
	ModerateDiastolicMax = 109
)

// Recommended actions carried in the message body.
const (
	ModerateAction  = "see a doctor soon"
	EmergencyAction = "seek immediate hospital care"
)

// Classify maps a systolic/diastolic pair to a band. Only the two explicit
// bands alert; every other pair, including stage-2 values outside the
// moderate box, is BandNone.
func Classify(systolic, diastolic int) Band {
	if systolic >= EmergencySystolicMin && diastolic >= EmergencyDiastolicMin {
		return BandEmergency
	}
	if systolic >= ModerateSystolicMin && systolic <= ModerateSystolicMax &&
		diastolic >= ModerateDiastolicMin && diastolic <= ModerateDiastolicMax {
		return BandModerate
	}
	return BandNone
}

// Event is an alert addressed to a patient's responsible party.
type Event struct {
	ID          string    `json:"id"`
	PatientID   int       `json:"patient_id"`
	Band        Band      `json:"band"`
	Systolic    int       `json:"systolic"`
	Diastolic   int       `json:"diastolic"`
	Message     string    `json:"message"`
	TargetPhone string    `json:"target_phone"`
	Timestamp   time.Time `json:"timestamp"`
}

// Evaluate classifies r and, for a non-None band, returns the event for p's
// responsible party. The target phone is read from p at call time.
func Evaluate(p patient.Patient, r patient.Reading) (Event, bool) {
	band := Classify(r.Systolic, r.Diastolic)
	if band == BandNone || p.Responsible == nil {
		return Event{}, false
	}

	return Event{
		ID:          uuid.NewString(),
		PatientID:   p.ID,
		Band:        band,
		Systolic:    r.Systolic,
		Diastolic:   r.Diastolic,
		Message:     FormatMessage(band, p, r),
		TargetPhone: p.Responsible.PhoneNumber,
		Timestamp:   r.Timestamp,
	}, true
}

// FormatMessage renders the fixed template for band. BandNone yields "".
func FormatMessage(band Band, p patient.Patient, r patient.Reading) string {
	var header, action string
	switch band {
	case BandModerate:
		header, action = "MODERATE HYPERTENSION ALERT", ModerateAction
	case BandEmergency:
		header, action = "HYPERTENSIVE EMERGENCY ALERT", EmergencyAction
	default:
		return ""
	}

	return fmt.Sprintf("%s\nPatient: %s (ID: %d)\nBlood Pressure: %d/%d mmHg\nAction: %s",
		header, p.FullName(), p.ID, r.Systolic, r.Diastolic, action)
}
