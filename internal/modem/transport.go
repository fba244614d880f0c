package modem

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tarm/serial"
)

// Fixed serial line configuration: 115200 baud, 8N1, 1s read timeout.
const (
	BaudRate    = 115200
	DataBits    = 8
	ReadTimeout = time.Second

	readChunkSize = 256
)

// Transport is a byte-oriented serial connection.
type Transport interface {
	// Open connects to the named port. Any failure matches ErrConnectionFailure.
	Open(portName string) error
	// Close releases the port; safe when never opened or already closed.
	Close() error
	Write(p []byte) error
	// ReadAvailable returns whatever has arrived, possibly nothing, blocking
	// at most for the read timeout.
	ReadAvailable() ([]byte, error)
}

// SerialTransport implements Transport on a tarm/serial port.
type SerialTransport struct {
	port *serial.Port
	name string
}

// NewSerialTransport returns an unopened transport.
func NewSerialTransport() *SerialTransport {
	return &SerialTransport{}
}

// LineConfig is the serial configuration used for portName.
func LineConfig(portName string) *serial.Config {
	return &serial.Config{
		Name:        portName,
		Baud:        BaudRate,
		Size:        DataBits,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: ReadTimeout,
	}
}

// Open opens the serial port.
func (t *SerialTransport) Open(portName string) error {
	if t.port != nil {
		return fmt.Errorf("%w: %s already in use by this session", ErrConnectionFailure, t.name)
	}

	p, err := serial.OpenPort(LineConfig(portName))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnectionFailure, portName, err)
	}

	t.port = p
	t.name = portName
	return nil
}

// Close closes the serial port if it is open.
func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Write writes all of p.
func (t *SerialTransport) Write(p []byte) error {
	if t.port == nil {
		return ErrNotConnected
	}
	if _, err := t.port.Write(p); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// ReadAvailable drains the input until a read returns nothing within the
// read timeout.
func (t *SerialTransport) ReadAvailable() ([]byte, error) {
	if t.port == nil {
		return nil, ErrNotConnected
	}
	return drain(t.port)
}

// drain reads chunks from r until it yields no data. Timeouts and EOF count
// as "no more data".
func drain(r io.Reader) ([]byte, error) {
	var collected []byte
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			collected = append(collected, chunk[:n]...)
		}
		if err != nil {
			if isIdleReadError(err) {
				return collected, nil
			}
			return collected, fmt.Errorf("serial read failed: %w", err)
		}
		if n == 0 {
			return collected, nil
		}
	}
}

func isIdleReadError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
