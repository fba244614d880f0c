package modem

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnectionFailure: the port could not be opened (missing, busy,
	// permission denied).
	ErrConnectionFailure = errors.New("modem connection failure")
	// ErrNotConnected: an operation was attempted on a closed session.
	ErrNotConnected = errors.New("modem not connected")
	// ErrCommandFailure: the modem answered without OK, or not at all.
	ErrCommandFailure = errors.New("modem command failure")
)

// CommandError reports a failed AT exchange together with the raw response
// the modem produced. It matches ErrCommandFailure with errors.Is.
type CommandError struct {
	Operation string
	Command   string
	Response  string
	Err       error
}

func (e *CommandError) Error() string {
	response := strings.TrimSpace(e.Response)
	if response == "" {
		response = "<empty>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed at %q: %v", e.Operation, e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: modem replied %q", e.Operation, response)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailure
}
