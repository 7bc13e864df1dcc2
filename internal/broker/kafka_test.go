package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishEmailConfirmationRequested(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(NewProducerWithWriter(w))

	event := &models.EmailConfirmationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeEmailConfirmationRequested,
			Timestamp: time.Now(),
		},
		UserID: 7,
		To:     "ana@x.com",
		Text:   "Seu código de confirmação é: 123456",
	}

	require.NoError(t, pub.PublishEmailConfirmationRequested(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-7", string(w.msgs[0].Key))

	var decoded models.EmailConfirmationRequestedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeEmailConfirmationRequested, decoded.EventType)
	assert.Equal(t, "ana@x.com", decoded.To)
}

func TestPublishEventWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w)

	err := p.PublishEvent(context.Background(), "k", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "failed to write message to kafka")
}
