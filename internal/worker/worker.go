package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice/internal/broker"
	"backoffice/internal/models"
	"backoffice/internal/notify"
	"backoffice/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MailWorker delivers the confirmation mails published by KafkaNotifier
type MailWorker struct {
	consumer *broker.Consumer
	mailer   notify.Mailer
	logger   *zap.Logger
}

// NewMailWorker creates a new mail worker
func NewMailWorker(consumer *broker.Consumer, mailer notify.Mailer) *MailWorker {
	return &MailWorker{
		consumer: consumer,
		mailer:   mailer,
		logger:   util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled
func (w *MailWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting mail worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *MailWorker) Stop() error {
	w.logger.Info("Stopping mail worker")
	return w.consumer.Close()
}

// HandleMessage delivers one notification event. Unknown and malformed
// events are skipped so they do not block the partition.
func (w *MailWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Warn("Dropping malformed event", zap.Int64("offset", msg.Offset), zap.Error(err))
		util.MailRelayMessagesTotal.WithLabelValues("unknown", "malformed").Inc()
		return nil
	}

	switch base.EventType {
	case models.EventTypeEmailConfirmationRequested:
		var event models.EmailConfirmationRequestedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			w.logger.Warn("Dropping malformed event", zap.String("event_id", base.EventID), zap.Error(err))
			util.MailRelayMessagesTotal.WithLabelValues(base.EventType, "malformed").Inc()
			return nil
		}
		if err := w.mailer.Send(ctx, &event); err != nil {
			util.MailRelayMessagesTotal.WithLabelValues(base.EventType, "failed").Inc()
			return fmt.Errorf("failed to deliver %s: %w", base.EventID, err)
		}
		util.MailRelayMessagesTotal.WithLabelValues(base.EventType, "sent").Inc()
	default:
		w.logger.Debug("Ignoring event", zap.String("event_type", base.EventType))
		util.MailRelayMessagesTotal.WithLabelValues("other", "ignored").Inc()
	}

	return nil
}
