package modem

import (
	"fmt"

	"go.uber.org/zap"
)

// PlaceCall dials number as a voice call. On success the session is
// in-call until EndCall.
func (d *Driver) PlaceCall(number string) error {
	const operation = "place call"
	if err := d.requireOpen(operation); err != nil {
		return err
	}

	lines := []string{CMD_ATTENTION, buildDialCommand(number)}
	if _, err := d.runScript(operation, lines, ""); err != nil {
		d.logger.Warn("dial failed", zap.String("to", number), zap.Error(err))
		return err
	}

	d.state = StateInCall
	d.logger.Info("call initiated", zap.String("to", number))
	return nil
}

// EndCall hangs up. A failed hang-up leaves the state unchanged.
func (d *Driver) EndCall() error {
	const operation = "end call"
	if err := d.requireOpen(operation); err != nil {
		return err
	}

	lines := []string{CMD_ATTENTION, CMD_HANG_UP}
	if _, err := d.runScript(operation, lines, ""); err != nil {
		d.logger.Warn("hang up failed", zap.Error(err))
		return err
	}

	d.state = StateIdle
	d.logger.Info("call ended")
	return nil
}

// buildDialCommand builds the voice dial command; the trailing ';' selects
// a voice call.
func buildDialCommand(number string) string {
	return fmt.Sprintf(CMD_DIAL_VOICE_FMT, number)
}
