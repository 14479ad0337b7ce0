package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pixelvault/marketplace/internal/config"
	"github.com/pixelvault/marketplace/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to marketplace events and returns the subscribed types.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil {
		return nil
	}
	handlers := []struct {
		eventType events.EventType
		handle    events.EventHandler
	}{
		{events.EventUserSignedUp, n.handleUserSignedUp},
		{events.EventSubscriptionActivated, n.handleSubscriptionActivated},
		{events.EventPaymentFailed, n.handlePaymentFailed},
		{events.EventImageDeleted, n.handleImageDeleted},
	}
	subscribed := make([]events.EventType, 0, len(handlers))
	for _, h := range handlers {
		n.dispatcher.Subscribe(h.eventType, h.handle)
		subscribed = append(subscribed, h.eventType)
	}
	return subscribed
}

func (n *NotificationService) handleUserSignedUp(ctx context.Context, event events.Event) error {
	n.logger.Info("UserSignedUp", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.UserSignedUpPayload); ok {
		n.sendEmailNotificationStub(ctx, event, payload.Email, "Welcome")
	}
	return nil
}

func (n *NotificationService) handleSubscriptionActivated(ctx context.Context, event events.Event) error {
	n.logger.Info("SubscriptionActivated", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, "", "Your premium subscription is active")
	return nil
}

func (n *NotificationService) handlePaymentFailed(_ context.Context, event events.Event) error {
	n.logger.Warn("PaymentFailed", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleImageDeleted(_ context.Context, event events.Event) error {
	n.logger.Info("ImageDeleted", zap.String("image_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, to, subject string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
