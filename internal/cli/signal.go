// Package cli holds the start-up plumbing shared by the command-line tools:
// config + logger bootstrap, signal handling, serial port discovery.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler cancels its context on SIGINT or SIGTERM.
type SignalHandler struct {
	notifyContext context.Context
	stopFunc      context.CancelFunc
}

// NewSignalHandler starts listening immediately.
func NewSignalHandler(parent context.Context) *SignalHandler {
	notifyContext, stopFunc := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &SignalHandler{notifyContext: notifyContext, stopFunc: stopFunc}
}

// Context is cancelled on the first signal.
func (handler *SignalHandler) Context() context.Context {
	return handler.notifyContext
}

// Stop releases the signal registration; a second Ctrl+C then kills the
// process the default way.
func (handler *SignalHandler) Stop() {
	handler.stopFunc()
}
