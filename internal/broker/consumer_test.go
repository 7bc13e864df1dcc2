package broker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays msgs, then reports io.EOF like a closed kafka reader
type scriptedReader struct {
	msgs      []kafka.Message
	fetchErrs []error
	committed []int64
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func TestStartConsumingCommitsHandledMessages(t *testing.T) {
	reader := &scriptedReader{
		msgs: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}},
	}
	c := NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)

	var seen []int64
	failed := false
	err := c.StartConsuming(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		seen = append(seen, msg.Offset)
		if msg.Offset == 2 && !failed {
			failed = true
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2, 3}, seen)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
}

func TestStartConsumingRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &scriptedReader{
		msgs: []kafka.Message{{Offset: 1}, {Offset: 2}},
	}
	c := NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)

	var seen []int64
	failures := 0
	err := c.StartConsuming(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		seen = append(seen, msg.Offset)
		if msg.Offset == 1 && failures < 3 {
			failures++
			// nothing may be committed while offset 1 is pending
			assert.Empty(t, reader.committed)
			return errors.New("smtp down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1, 1, 2}, seen)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestStartConsumingStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{
		msgs: []kafka.Message{{Offset: 1}, {Offset: 2}},
	}
	c := NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)

	attempts := 0
	err := c.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		require.Equal(t, int64(1), msg.Offset)
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("smtp down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.msgs, 1)
}

func TestStartConsumingRetriesFetchErrors(t *testing.T) {
	reader := &scriptedReader{
		msgs:      []kafka.Message{{Offset: 7}},
		fetchErrs: []error{errors.New("broker unavailable")},
	}
	c := NewConsumerWithReader(reader).WithRetryDelay(time.Millisecond)

	var seen []int64
	err := c.StartConsuming(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		seen = append(seen, msg.Offset)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{7}, seen)
}

func TestStartConsumingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &scriptedReader{fetchErrs: []error{context.Canceled}}
	err := NewConsumerWithReader(reader).StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		t.Fatal("handler must not run")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
