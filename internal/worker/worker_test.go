package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"backoffice/internal/broker"
	"backoffice/internal/models"
	"backoffice/internal/notify"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMailer returns err for the first failures attempts, or for every
// attempt when failures is negative
type fakeMailer struct {
	sent     []*models.EmailConfirmationRequestedEvent
	err      error
	failures int
	attempts int
}

func (m *fakeMailer) Send(ctx context.Context, mail *models.EmailConfirmationRequestedEvent) error {
	m.attempts++
	if m.err != nil && (m.failures < 0 || m.attempts <= m.failures) {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

type sliceReader struct {
	msgs      []kafka.Message
	committed int
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed += len(msgs)
	return nil
}

func (r *sliceReader) Close() error { return nil }

func confirmationMessage(t *testing.T, to string) kafka.Message {
	t.Helper()
	event := notify.BuildConfirmationEvent(&models.User{ID: 1, Email: to}, "123456", "no-reply@shop.com", time.Now().Add(time.Hour))
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("user-1"), Value: raw}
}

func TestMailWorkerDeliversConfirmations(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		confirmationMessage(t, "ana@x.com"),
		{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)},
		{Value: []byte(`not json`)},
		confirmationMessage(t, "bia@x.com"),
	}}
	mailer := &fakeMailer{}

	w := NewMailWorker(broker.NewConsumerWithReader(reader), mailer)
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ana@x.com", mailer.sent[0].To)
	assert.Equal(t, "bia@x.com", mailer.sent[1].To)
	assert.Contains(t, mailer.sent[0].Text, "123456")
	assert.Equal(t, 4, reader.committed)
}

func TestMailWorkerReportsFailedDelivery(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down"), failures: -1}
	w := NewMailWorker(broker.NewConsumerWithReader(&sliceReader{}), mailer)

	err := w.HandleMessage(context.Background(), confirmationMessage(t, "ana@x.com"))
	assert.ErrorContains(t, err, "smtp down")
	assert.Empty(t, mailer.sent)
}

func TestMailWorkerRetriesFailedDeliveryBeforeNextMessage(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		confirmationMessage(t, "ana@x.com"),
		confirmationMessage(t, "bia@x.com"),
	}}
	mailer := &fakeMailer{err: errors.New("smtp down"), failures: 2}

	consumer := broker.NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)
	w := NewMailWorker(consumer, mailer)
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ana@x.com", mailer.sent[0].To)
	assert.Equal(t, "bia@x.com", mailer.sent[1].To)
	assert.Equal(t, 4, mailer.attempts)
	assert.Equal(t, 2, reader.committed)
}

func TestMailWorkerLeavesFailedDeliveryUncommitted(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		confirmationMessage(t, "ana@x.com"),
		confirmationMessage(t, "bia@x.com"),
	}}
	mailer := &fakeMailer{err: errors.New("smtp down"), failures: -1}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	consumer := broker.NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)
	err := NewMailWorker(consumer, mailer).Start(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, mailer.attempts, 1)
	assert.Empty(t, mailer.sent)
	assert.Zero(t, reader.committed)
	assert.Len(t, reader.msgs, 1)
}
