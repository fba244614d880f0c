// Package recorder persists readings and alert events: a CSV vital-sign
// log, MySQL tables, and a Redis alert history, combined through Fanout.
package recorder

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/patient"
)

// ReadingSink stores readings.
type ReadingSink interface {
	SaveReading(ctx context.Context, r patient.Reading) error
}

// AlertSink stores alert events.
type AlertSink interface {
	SaveAlert(ctx context.Context, ev alert.Event) error
}

// Fanout forwards every reading and alert to all registered sinks. A
// failing sink does not stop the others; the joined error is returned.
type Fanout struct {
	readings []ReadingSink
	alerts   []AlertSink
	logger   *zap.Logger
}

func NewFanout(logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{logger: logger.Named("recorder")}
}

// AddReadingSink registers s; nil is ignored.
func (f *Fanout) AddReadingSink(s ReadingSink) *Fanout {
	if s != nil {
		f.readings = append(f.readings, s)
	}
	return f
}

// AddAlertSink registers s; nil is ignored.
func (f *Fanout) AddAlertSink(s AlertSink) *Fanout {
	if s != nil {
		f.alerts = append(f.alerts, s)
	}
	return f
}

// Empty reports whether no sink is registered.
func (f *Fanout) Empty() bool {
	return len(f.readings) == 0 && len(f.alerts) == 0
}

func (f *Fanout) SaveReading(ctx context.Context, r patient.Reading) error {
	var errs []error
	for _, sink := range f.readings {
		if err := sink.SaveReading(ctx, r); err != nil {
			f.logger.Warn("save reading failed", zap.Int("patient_id", r.PatientID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) SaveAlert(ctx context.Context, ev alert.Event) error {
	var errs []error
	for _, sink := range f.alerts {
		if err := sink.SaveAlert(ctx, ev); err != nil {
			f.logger.Warn("save alert failed", zap.String("alert_id", ev.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
