package broker

import (
	"context"
	"fmt"

	"backoffice/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishEmailConfirmationRequested publishes EmailConfirmationRequested event
func (ep *EventPublisher) PublishEmailConfirmationRequested(ctx context.Context, event *models.EmailConfirmationRequestedEvent) error {
	key := fmt.Sprintf("user-%d", event.UserID)
	return ep.producer.PublishEvent(ctx, key, event)
}
