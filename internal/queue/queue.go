// Package queue publishes alert events to NSQ for downstream consumers
// (paging systems, audit trails).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
	"go.uber.org/zap"

	"vitals-alert/internal/alert"
)

// Publisher is the part of *nsq.Producer the alert producer uses.
type Publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// ==================== Messages ====================

// AlertMessage is the JSON payload published for each alert event.
type AlertMessage struct {
	MessageID string    `json:"message_id"`
	PatientID int       `json:"patient_id"`
	Band      string    `json:"band"`
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Phone     string    `json:"phone"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAlertMessage converts an event to its wire form.
func NewAlertMessage(ev alert.Event) AlertMessage {
	return AlertMessage{
		MessageID: ev.ID,
		PatientID: ev.PatientID,
		Band:      ev.Band.String(),
		Systolic:  ev.Systolic,
		Diastolic: ev.Diastolic,
		Phone:     ev.TargetPhone,
		Content:   ev.Message,
		Timestamp: ev.Timestamp,
	}
}

// Validate checks the fields consumers rely on.
func (m AlertMessage) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message id is required")
	}
	if m.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// ==================== Producer ====================

// AlertProducer publishes alert events as JSON.
type AlertProducer struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// NewAlertProducer connects lazily to nsqd at addr; go-nsq dials on the
// first publish.
func NewAlertProducer(addr, topic string, logger *zap.Logger) (*AlertProducer, error) {
	if addr == "" {
		return nil, fmt.Errorf("nsqd address is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create alert producer: %w", err)
	}
	producer.SetLogger(zap.NewStdLog(logger.Named("nsq")), nsq.LogLevelWarning)

	return NewAlertProducerWithPublisher(producer, topic, logger), nil
}

// NewAlertProducerWithPublisher wraps an existing publisher.
func NewAlertProducerWithPublisher(publisher Publisher, topic string, logger *zap.Logger) *AlertProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertProducer{publisher: publisher, topic: topic, logger: logger.Named("queue")}
}

// SaveAlert publishes ev. go-nsq's Publish takes no context; ctx is only
// checked before publishing.
func (p *AlertProducer) SaveAlert(ctx context.Context, ev alert.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := NewAlertMessage(ev)
	if err := message.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}
	if err := p.publisher.Publish(p.topic, payload); err != nil {
		return fmt.Errorf("failed to publish alert message: %w", err)
	}

	p.logger.Debug("alert published",
		zap.String("topic", p.topic),
		zap.String("message_id", message.MessageID),
		zap.Int("patient_id", message.PatientID))
	return nil
}

// Topic returns the topic alerts are published to.
func (p *AlertProducer) Topic() string {
	return p.topic
}

// Close stops the underlying producer.
func (p *AlertProducer) Close() {
	if p.publisher != nil {
		p.publisher.Stop()
	}
}
