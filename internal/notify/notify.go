package notify

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/broker"
	"backoffice/internal/models"
	"backoffice/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const confirmationSubject = "Confirmação de E-mail - Cia de Condimentos"

// Notifier delivers account notifications to customers
type Notifier interface {
	SendConfirmation(ctx context.Context, user *models.User, code string, expiresAt time.Time) error
}

// LogNotifier writes confirmation codes to the log instead of sending them
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) SendConfirmation(ctx context.Context, user *models.User, code string, expiresAt time.Time) error {
	n.logger.Info("Email confirmation code issued",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt))
	return nil
}

// KafkaNotifier hands confirmation mails to the mail relay over Kafka
type KafkaNotifier struct {
	publisher *broker.EventPublisher
	from      string
	logger    *zap.Logger
}

func NewKafkaNotifier(publisher *broker.EventPublisher, from string) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		from:      from,
		logger:    util.GetLogger(),
	}
}

func (n *KafkaNotifier) SendConfirmation(ctx context.Context, user *models.User, code string, expiresAt time.Time) error {
	ctx, span := util.StartSpan(ctx, "KafkaNotifier.SendConfirmation")
	defer span.End()

	event := BuildConfirmationEvent(user, code, n.from, expiresAt)
	if err := n.publisher.PublishEmailConfirmationRequested(ctx, event); err != nil {
		return fmt.Errorf("failed to publish confirmation email: %w", err)
	}

	n.logger.Info("Confirmation email requested", zap.Int64("user_id", user.ID), zap.String("event_id", event.EventID))
	return nil
}

// BuildConfirmationEvent renders the confirmation mail for user
func BuildConfirmationEvent(user *models.User, code, from string, expiresAt time.Time) *models.EmailConfirmationRequestedEvent {
	return &models.EmailConfirmationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeEmailConfirmationRequested,
			Timestamp: time.Now(),
		},
		UserID:    user.ID,
		To:        user.Email,
		From:      from,
		Subject:   confirmationSubject,
		Text:      fmt.Sprintf("Seu código de confirmação é: %s", code),
		HTML:      fmt.Sprintf("<p>Seu código de confirmação é: <b>%s</b></p>", code),
		ExpiresAt: expiresAt,
	}
}
