package modem

// State is the lifecycle state of a modem session.
type State int

const (
	StateClosed State = iota
	StateIdle
	StateSending
	StateInCall
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateInCall:
		return "in-call"
	default:
		return "closed"
	}
}

// SMS is one entry of a +CMGL listing.
type SMS struct {
	Index     int    `json:"index"`
	Status    string `json:"status"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}
