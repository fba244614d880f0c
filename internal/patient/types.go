package patient

import "time"

const (
	// DateLayout is the on-disk date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// TimestampLayout is the on-disk timestamp format (YYYY-MM-DD HH:MM:SS).
	TimestampLayout = "2006-01-02 15:04:05"
)

// ResponsibleParty is the contact notified when one of their patients alerts.
type ResponsibleParty struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	PhoneNumber string `json:"phone_number"`
}

// FullName returns "Name Surname".
func (r ResponsibleParty) FullName() string {
	return r.Name + " " + r.Surname
}

// Patient is a monitored subject. Responsible may be shared between patients.
type Patient struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Surname     string            `json:"surname"`
	DateOfBirth time.Time         `json:"date_of_birth"`
	Location    string            `json:"location"`
	Responsible *ResponsibleParty `json:"responsible"`
}

// FullName returns "Name Surname".
func (p Patient) FullName() string {
	return p.Name + " " + p.Surname
}

// Reading is one sample of a patient's vital signs.
type Reading struct {
	PatientID        int       `json:"patient_id"`
	Timestamp        time.Time `json:"timestamp"`
	Systolic         int       `json:"systolic"`          // mmHg
	Diastolic        int       `json:"diastolic"`         // mmHg
	HeartRate        int       `json:"heart_rate"`        // bpm
	Temperature      float64   `json:"temperature"`       // °C
	OxygenSaturation int       `json:"oxygen_saturation"` // %
	RespiratoryRate  int       `json:"respiratory_rate"`  // breaths per minute
}
