// Package status keeps an in-memory view of the running monitor for the
// HTTP status API. The loop writes, HTTP handlers read.
package status

import (
	"context"
	"sort"
	"sync"
	"time"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/patient"
)

// ==================== Constants ====================

const (
	ChannelSMS = "sms"

	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"

	defaultMaxKeep = 200
)

// ==================== Types ====================

// NotificationStatus is the outcome of one alert notification.
type NotificationStatus struct {
	MessageID string    `json:"message_id"`
	PatientID int       `json:"patient_id"`
	Channel   string    `json:"channel"`
	Phone     string    `json:"phone,omitempty"`
	Content   string    `json:"content,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ModemStatus describes the modem session as last reported.
type ModemStatus struct {
	Connected bool      `json:"connected"`
	Port      string    `json:"port,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MonitorStatus is the loop's progress.
type MonitorStatus struct {
	Running   bool      `json:"running"`
	Intervals int       `json:"intervals"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastRunAt time.Time `json:"last_run_at,omitempty"`
}

// Board is safe for concurrent use.
type Board struct {
	mu            sync.RWMutex
	maxKeep       int
	readings      map[int]patient.Reading
	alerts        []alert.Event
	notifications []NotificationStatus
	modem         ModemStatus
	monitor       MonitorStatus
	now           func() time.Time
}

// NewBoard keeps at most maxKeep alerts and notifications (newest win).
// maxKeep <= 0 selects a default.
func NewBoard(maxKeep int) *Board {
	if maxKeep <= 0 {
		maxKeep = defaultMaxKeep
	}
	return &Board{
		maxKeep:  maxKeep,
		readings: make(map[int]patient.Reading),
		modem:    ModemStatus{State: "closed"},
		now:      time.Now,
	}
}

// ==================== Updates ====================

// SaveReading stores r as the latest reading of its patient.
func (b *Board) SaveReading(_ context.Context, r patient.Reading) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readings[r.PatientID] = r
	return nil
}

// SaveAlert appends ev to the alert history.
func (b *Board) SaveAlert(_ context.Context, ev alert.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = appendBounded(b.alerts, ev, b.maxKeep)
	return nil
}

// RecordNotification appends a notification outcome.
func (b *Board) RecordNotification(ns NotificationStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ns.CreatedAt.IsZero() {
		ns.CreatedAt = b.now()
	}
	if ns.Channel == "" {
		ns.Channel = ChannelSMS
	}
	b.notifications = appendBounded(b.notifications, ns, b.maxKeep)
}

// SetModem records the modem session state.
func (b *Board) SetModem(connected bool, port, state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modem = ModemStatus{Connected: connected, Port: port, State: state, UpdatedAt: b.now()}
}

// MonitorStarted marks the loop running.
func (b *Board) MonitorStarted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitor = MonitorStatus{Running: true, StartedAt: b.now()}
}

// IntervalCompleted bumps the interval counter.
func (b *Board) IntervalCompleted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitor.Intervals++
	b.monitor.LastRunAt = b.now()
}

// MonitorStopped marks the loop finished.
func (b *Board) MonitorStopped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitor.Running = false
}

func appendBounded[T any](list []T, item T, max int) []T {
	list = append(list, item)
	if len(list) > max {
		list = append(list[:0:0], list[len(list)-max:]...)
	}
	return list
}

// ==================== Queries ====================

// Readings returns the latest reading per patient ordered by patient ID.
func (b *Board) Readings() []patient.Reading {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]patient.Reading, 0, len(b.readings))
	for _, r := range b.readings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out
}

// Reading returns the latest reading for patientID.
func (b *Board) Reading(patientID int) (patient.Reading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.readings[patientID]
	return r, ok
}

// Alerts returns up to limit alerts, newest first. limit <= 0 means all.
func (b *Board) Alerts(limit int) []alert.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return newestFirst(b.alerts, limit)
}

// Notifications returns up to limit outcomes, newest first.
func (b *Board) Notifications(limit int) []NotificationStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return newestFirst(b.notifications, limit)
}

func (b *Board) Modem() ModemStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modem
}

func (b *Board) Monitor() MonitorStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.monitor
}

func newestFirst[T any](list []T, limit int) []T {
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out
}
