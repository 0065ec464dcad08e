package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/events"
)

// NotificationService records domain events in the log. Email and webhook
// notifications are log-only: nothing is delivered.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventExternalIdentityLinked, n.handleExternalIdentityLinked)
	n.dispatcher.Subscribe(events.EventTicketListed, n.handleTicketListed)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.logEmailNotification(ctx, event)
	return nil
}

func (n *NotificationService) handleExternalIdentityLinked(ctx context.Context, event events.Event) error {
	n.logger.Info("ExternalIdentityLinked", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.logEmailNotification(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketListed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketListed",
		zap.String("ticket_id", event.SubjectID),
		zap.String("seller_id", event.ActorID),
		zap.Any("payload", event.Payload))
	n.logWebhookNotification(ctx, event)
	return nil
}

// logEmailNotification logs the email that would be sent from EmailFrom.
func (n *NotificationService) logEmailNotification(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification (log only)",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

// logWebhookNotification logs the call that would be made to WebhookURL.
func (n *NotificationService) logWebhookNotification(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification (log only)",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
