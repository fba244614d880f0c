// Package monitor runs the fixed-period vital-sign monitoring loop: sample
// every patient, evaluate blood pressure, and text the responsible party
// when a reading crosses an alert band.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/metrics"
	"vitals-alert/internal/patient"
	"vitals-alert/internal/recorder"
	"vitals-alert/internal/status"
	"vitals-alert/internal/vitals"
)

const (
	DefaultDuration = 5 * time.Minute
	DefaultInterval = 20 * time.Second
)

// ErrInterrupted is returned by Run when its context is cancelled.
var ErrInterrupted = errors.New("monitoring interrupted")

// Notifier delivers alert text messages. *modem.Driver implements it; the
// loop owns it and closes it when Run returns.
type Notifier interface {
	SendMessage(number, body string) error
	Close() error
}

// Loop is a single monitoring run. It is not reusable once Run returns.
type Loop struct {
	roster   *patient.Roster
	sampler  vitals.Sampler
	notifier Notifier

	readingSink recorder.ReadingSink
	alertSink   recorder.AlertSink
	board       *status.Board
	metrics     *metrics.Collector
	logger      *zap.Logger
	summary     io.Writer

	duration time.Duration
	interval time.Duration
	now      func() time.Time
	wait     func(ctx context.Context, d time.Duration) error
}

// Option configures a Loop.
type Option func(*Loop)

// WithDuration sets the total monitoring time.
func WithDuration(d time.Duration) Option {
	return func(l *Loop) { l.duration = d }
}

// WithInterval sets the period between sampling rounds.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) { l.interval = d }
}

// WithNotifier enables alert transmission. Without it the loop only
// evaluates.
func WithNotifier(n Notifier) Option {
	return func(l *Loop) { l.notifier = n }
}

func WithReadingSink(s recorder.ReadingSink) Option {
	return func(l *Loop) { l.readingSink = s }
}

func WithAlertSink(s recorder.AlertSink) Option {
	return func(l *Loop) { l.alertSink = s }
}

// WithStatusBoard publishes progress for the HTTP status API.
func WithStatusBoard(b *status.Board) Option {
	return func(l *Loop) { l.board = b }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(l *Loop) { l.metrics = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger.Named("monitor")
		}
	}
}

// WithSummaryWriter receives the per-interval table.
func WithSummaryWriter(w io.Writer) Option {
	return func(l *Loop) { l.summary = w }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithWait overrides the inter-interval wait. wait must return ctx.Err()
// when ctx is cancelled.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Loop) { l.wait = wait }
}

// New builds a loop over roster using sampler.
func New(roster *patient.Roster, sampler vitals.Sampler, opts ...Option) (*Loop, error) {
	if roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}

	l := &Loop{
		roster:   roster,
		sampler:  sampler,
		logger:   zap.NewNop(),
		summary:  io.Discard,
		duration: DefaultDuration,
		interval: DefaultInterval,
		now:      time.Now,
		wait:     sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", l.interval)
	}
	if l.duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", l.duration)
	}
	return l, nil
}

// Run samples every interval until the duration has elapsed or ctx is
// cancelled. Cancellation is observed between intervals and during the
// wait; a started interval always finishes. The notifier is closed before
// Run returns, whatever the outcome.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := l.release(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	start := l.now()
	deadline := start.Add(l.duration)
	l.logger.Info("monitoring started",
		zap.Int("patients", l.roster.Len()),
		zap.Duration("duration", l.duration),
		zap.Duration("interval", l.interval),
		zap.Bool("transmit", l.notifier != nil))
	if l.board != nil {
		l.board.MonitorStarted()
	}

	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			return l.interrupted(iteration - 1)
		}

		l.runInterval(context.WithoutCancel(ctx), iteration)

		if !l.now().Before(deadline) {
			return l.completed(iteration)
		}
		if waitErr := l.wait(ctx, l.interval); waitErr != nil {
			return l.interrupted(iteration)
		}
		if !l.now().Before(deadline) {
			return l.completed(iteration)
		}
	}
}

func (l *Loop) completed(intervals int) error {
	l.logger.Info("monitoring completed", zap.Int("intervals", intervals))
	return nil
}

func (l *Loop) interrupted(completed int) error {
	l.logger.Info("monitoring interrupted", zap.Int("intervals", completed))
	return ErrInterrupted
}

// release closes the notifier and marks the run finished.
func (l *Loop) release() error {
	if l.board != nil {
		l.board.MonitorStopped()
	}
	if l.notifier == nil {
		return nil
	}

	err := l.notifier.Close()
	if l.board != nil {
		l.board.SetModem(false, "", "closed")
	}
	l.metrics.SetModemConnected(false)
	if err != nil {
		l.logger.Warn("close modem session failed", zap.Error(err))
		return fmt.Errorf("close modem session: %w", err)
	}
	return nil
}

// ==================== Interval ====================

// row is one line of the interval summary.
type row struct {
	patient      patient.Patient
	reading      patient.Reading
	band         alert.Band
	notification string
}

func (l *Loop) runInterval(ctx context.Context, iteration int) {
	startedAt := l.now()
	patients := l.roster.Patients()
	rows := make([]row, 0, len(patients))

	for _, p := range patients {
		reading := l.sampler.ProduceReading(p.ID)
		l.recordReading(ctx, reading)

		r := row{patient: p, reading: reading}
		if ev, ok := alert.Evaluate(p, reading); ok {
			r.band = ev.Band
			r.notification = l.handleAlert(ctx, p, ev)
		}
		rows = append(rows, r)
	}

	if err := writeSummary(l.summary, iteration, startedAt, rows); err != nil {
		l.logger.Debug("write summary failed", zap.Error(err))
	}

	if l.board != nil {
		l.board.IntervalCompleted()
	}
	l.metrics.ObserveInterval()
}

func (l *Loop) recordReading(ctx context.Context, r patient.Reading) {
	l.metrics.ObserveReading()
	if l.board != nil {
		_ = l.board.SaveReading(ctx, r)
	}
	if l.readingSink != nil {
		if err := l.readingSink.SaveReading(ctx, r); err != nil {
			l.logger.Warn("record reading failed", zap.Int("patient_id", r.PatientID), zap.Error(err))
		}
	}
}

// handleAlert records ev and sends it; it returns the notification outcome.
func (l *Loop) handleAlert(ctx context.Context, p patient.Patient, ev alert.Event) string {
	l.metrics.ObserveAlert(ev.Band.String())
	l.logger.Warn("blood pressure alert",
		zap.String("band", ev.Band.String()),
		zap.Int("patient_id", p.ID),
		zap.String("patient", p.FullName()),
		zap.Int("systolic", ev.Systolic),
		zap.Int("diastolic", ev.Diastolic))

	if l.board != nil {
		_ = l.board.SaveAlert(ctx, ev)
	}
	if l.alertSink != nil {
		if err := l.alertSink.SaveAlert(ctx, ev); err != nil {
			l.logger.Warn("record alert failed", zap.String("alert_id", ev.ID), zap.Error(err))
		}
	}

	result, sendErr := l.notify(ev)

	if l.board != nil {
		ns := status.NotificationStatus{
			MessageID: ev.ID,
			PatientID: ev.PatientID,
			Channel:   status.ChannelSMS,
			Phone:     ev.TargetPhone,
			Content:   ev.Message,
			Status:    result,
			CreatedAt: l.now(),
		}
		if sendErr != nil {
			ns.Error = sendErr.Error()
		}
		l.board.RecordNotification(ns)
	}
	return result
}

// notify sends ev through the notifier. A failed send is logged and the
// loop moves on; there is no retry.
func (l *Loop) notify(ev alert.Event) (string, error) {
	if l.notifier == nil {
		l.metrics.ObserveNotification(metrics.ResultSkipped, 0)
		l.logger.Info("transmission disabled, alert not sent", zap.String("to", ev.TargetPhone))
		return status.StatusSkipped, nil
	}

	started := l.now()
	err := l.notifier.SendMessage(ev.TargetPhone, ev.Message)
	elapsed := l.now().Sub(started).Seconds()

	if err != nil {
		l.metrics.ObserveNotification(metrics.ResultFailed, elapsed)
		l.logger.Error("alert sms failed",
			zap.String("to", ev.TargetPhone),
			zap.Int("patient_id", ev.PatientID),
			zap.Error(err))
		return status.StatusFailed, err
	}

	l.metrics.ObserveNotification(metrics.ResultSent, elapsed)
	l.logger.Info("alert sms sent", zap.String("to", ev.TargetPhone), zap.Int("patient_id", ev.PatientID))
	return status.StatusSent, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
