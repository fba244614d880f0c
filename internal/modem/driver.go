package modem

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Pacing between writes. The modem needs settling time; there is no
// dynamic backoff.
const (
	DefaultSettleDelay   = 200 * time.Millisecond
	DefaultResponseDelay = 1 * time.Second
)

// Driver is a modem session: it owns its Transport exclusively between Open
// and Close and runs fixed AT scripts over it. A Driver is not safe for
// concurrent use; callers issue one operation at a time.
type Driver struct {
	transport     Transport
	logger        *zap.Logger
	sleep         func(time.Duration)
	settleDelay   time.Duration
	responseDelay time.Duration

	state        State
	portName     string
	lastCommand  string
	lastResponse string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l.Named("modem")
		}
	}
}

// WithSleep replaces time.Sleep for the settle delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = sleep }
}

// WithSettleDelay sets the pause after each command write.
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Driver) { d.settleDelay = delay }
}

// WithResponseDelay sets the pause after a script's final write, before the
// response is read.
func WithResponseDelay(delay time.Duration) Option {
	return func(d *Driver) { d.responseDelay = delay }
}

// NewDriver wraps transport in a closed session.
func NewDriver(transport Transport, opts ...Option) *Driver {
	d := &Driver{
		transport:     transport,
		logger:        zap.NewNop(),
		sleep:         time.Sleep,
		settleDelay:   DefaultSettleDelay,
		responseDelay: DefaultResponseDelay,
		state:         StateClosed,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenSerial opens a session on a serial port.
func OpenSerial(portName string, opts ...Option) (*Driver, error) {
	d := NewDriver(NewSerialTransport(), opts...)
	if err := d.Open(portName); err != nil {
		return nil, err
	}
	return d, nil
}

// ==================== Lifecycle ====================

// Open moves the session from closed to idle.
func (d *Driver) Open(portName string) error {
	if d.state != StateClosed {
		return fmt.Errorf("%w: session already open on %s", ErrConnectionFailure, d.portName)
	}

	if err := d.transport.Open(portName); err != nil {
		d.logger.Error("open port failed", zap.String("port", portName), zap.Error(err))
		return err
	}

	d.state = StateIdle
	d.portName = portName
	d.logger.Info("port opened", zap.String("port", portName))
	return nil
}

// Close releases the transport from any state. Calling it on a closed
// session is a no-op.
func (d *Driver) Close() error {
	if d.state == StateClosed {
		return nil
	}

	err := d.transport.Close()
	d.state = StateClosed
	if err != nil {
		d.logger.Warn("close port failed", zap.String("port", d.portName), zap.Error(err))
		return fmt.Errorf("close %s: %w", d.portName, err)
	}

	d.logger.Info("port closed", zap.String("port", d.portName))
	return nil
}

// State reports the session state.
func (d *Driver) State() State { return d.state }

// IsOpen reports whether the session holds the port.
func (d *Driver) IsOpen() bool { return d.state != StateClosed }

// PortName is the port given to the last successful Open.
func (d *Driver) PortName() string { return d.portName }

// LastCommand is the last line written to the modem (without terminator).
func (d *Driver) LastCommand() string { return d.lastCommand }

// LastResponse is the raw text read after the last script.
func (d *Driver) LastResponse() string { return d.lastResponse }

// ==================== Script engine ====================

// ClassifyResponse is nil iff response contains the OK token anywhere.
func ClassifyResponse(response []byte) error {
	if bytes.Contains(response, []byte(successToken)) {
		return nil
	}
	return ErrCommandFailure
}

func (d *Driver) requireOpen(operation string) error {
	if d.state == StateClosed {
		return fmt.Errorf("%s: %w", operation, ErrNotConnected)
	}
	return nil
}

// writeCommand writes one payload and waits settle.
func (d *Driver) writeCommand(payload string, settle time.Duration) error {
	display := strings.TrimRight(payload, "\r\n\x1a")
	d.logger.Debug("send", zap.String("command", display))

	d.lastCommand = display
	if err := d.transport.Write([]byte(payload)); err != nil {
		return err
	}

	d.sleep(settle)
	return nil
}

// runScript writes every line in order, then reads and classifies the
// accumulated response. Command lines get CRLF; raw (the SMS body) is
// written as-is after them when not empty.
func (d *Driver) runScript(operation string, lines []string, raw string) (string, error) {
	payloads := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		payloads = append(payloads, line+commandTerminator)
	}
	if raw != "" {
		payloads = append(payloads, raw)
	}

	for i, payload := range payloads {
		settle := d.settleDelay
		if i == len(payloads)-1 {
			settle = d.responseDelay
		}
		if err := d.writeCommand(payload, settle); err != nil {
			return "", &CommandError{Operation: operation, Command: d.lastCommand, Err: err}
		}
	}

	response, err := d.transport.ReadAvailable()
	d.lastResponse = string(response)
	if err != nil {
		return d.lastResponse, &CommandError{Operation: operation, Command: d.lastCommand, Response: d.lastResponse, Err: err}
	}

	d.logger.Debug("recv", zap.String("response", strings.TrimSpace(d.lastResponse)))

	if ClassifyResponse(response) != nil {
		return d.lastResponse, &CommandError{Operation: operation, Command: d.lastCommand, Response: d.lastResponse}
	}
	return d.lastResponse, nil
}

// textModeSetup is the liveness check plus SMS mode/charset selection.
func textModeSetup() []string {
	return []string{CMD_ATTENTION, CMD_SMS_TEXT_MODE, CMD_SET_CHARSET}
}
