// Package modemtest provides an in-memory modem transport for tests.
package modemtest

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// FakeTransport records writes and answers each one with a canned reply.
// Replies accumulate until ReadAvailable drains them, like a real port.
type FakeTransport struct {
	mu sync.Mutex

	// OpenErr is returned by Open when set.
	OpenErr error
	// WriteErr is returned by Write when set.
	WriteErr error
	// Reply, when set, computes the reply to one write.
	Reply func(payload string) string
	// Response is the reply to every write when Reply is nil.
	Response string

	Writes    []string
	Opens     int
	Closes    int
	Reads     int
	PortNames []string

	open    bool
	pending bytes.Buffer
}

// NewOK returns a transport that answers OK to every write.
func NewOK() *FakeTransport {
	return &FakeTransport{Response: "OK\r\n"}
}

// NewReplying returns a transport that answers every write with response.
func NewReplying(response string) *FakeTransport {
	return &FakeTransport{Response: response}
}

func (f *FakeTransport) Open(portName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Opens++
	f.PortNames = append(f.PortNames, portName)
	if f.OpenErr != nil {
		return f.OpenErr
	}
	f.open = true
	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes++
	f.open = false
	return nil
}

func (f *FakeTransport) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return fmt.Errorf("fake transport: write on closed port")
	}
	if f.WriteErr != nil {
		return f.WriteErr
	}
	payload := string(p)
	f.Writes = append(f.Writes, payload)
	if f.Reply != nil {
		f.pending.WriteString(f.Reply(payload))
	} else {
		f.pending.WriteString(f.Response)
	}
	return nil
}

func (f *FakeTransport) ReadAvailable() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	out := append([]byte(nil), f.pending.Bytes()...)
	f.pending.Reset()
	return out, nil
}

// IsOpen reports whether Open succeeded without a later Close.
func (f *FakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// WritesWithPrefix returns the writes starting with prefix.
func (f *FakeTransport) WritesWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.Writes {
		if strings.HasPrefix(w, prefix) {
			out = append(out, w)
		}
	}
	return out
}

// WriteCount is len(Writes) under the lock.
func (f *FakeTransport) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}
