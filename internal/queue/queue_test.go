package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitals-alert/internal/alert"
)

type fakePublisher struct {
	topics  []string
	bodies  [][]byte
	err     error
	stopped int
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakePublisher) Stop() { f.stopped++ }

func sampleEvent() alert.Event {
	return alert.Event{
		ID:          "3f1c",
		PatientID:   4,
		Band:        alert.BandEmergency,
		Systolic:    190,
		Diastolic:   115,
		Message:     "HYPERTENSIVE EMERGENCY ALERT",
		TargetPhone: "+38344922805",
		Timestamp:   time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC),
	}
}

func TestSaveAlertPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	producer := NewAlertProducerWithPublisher(pub, "vitals-alerts", nil)

	require.NoError(t, producer.SaveAlert(context.Background(), sampleEvent()))
	require.Len(t, pub.bodies, 1)
	assert.Equal(t, "vitals-alerts", pub.topics[0])

	var got AlertMessage
	require.NoError(t, json.Unmarshal(pub.bodies[0], &got))
	assert.Equal(t, "EMERGENCY", got.Band)
	assert.Equal(t, 4, got.PatientID)
	assert.Equal(t, "+38344922805", got.Phone)
	assert.Equal(t, 190, got.Systolic)
}

func TestSaveAlertRejectsIncompleteEvent(t *testing.T) {
	pub := &fakePublisher{}
	producer := NewAlertProducerWithPublisher(pub, "t", nil)

	ev := sampleEvent()
	ev.ID = ""
	assert.Error(t, producer.SaveAlert(context.Background(), ev))
	assert.Empty(t, pub.bodies)
}

func TestSaveAlertPublishError(t *testing.T) {
	boom := errors.New("connection refused")
	producer := NewAlertProducerWithPublisher(&fakePublisher{err: boom}, "t", nil)

	err := producer.SaveAlert(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
}

func TestSaveAlertCancelled(t *testing.T) {
	pub := &fakePublisher{}
	producer := NewAlertProducerWithPublisher(pub, "t", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, producer.SaveAlert(ctx, sampleEvent()), context.Canceled)
	assert.Empty(t, pub.bodies)
}

func TestNewAlertProducerValidation(t *testing.T) {
	_, err := NewAlertProducer("", "t", nil)
	assert.Error(t, err)
	_, err = NewAlertProducer("127.0.0.1:4150", "", nil)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	pub := &fakePublisher{}
	NewAlertProducerWithPublisher(pub, "t", nil).Close()
	assert.Equal(t, 1, pub.stopped)
}
