package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/events"
)

// NotificationService handles emitting notifications for lifecycle events.
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
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleStatusChange)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleStatusChange)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleStatusChange)
	n.dispatcher.Subscribe(events.EventTicketAutoClosed, n.handleAutoClosed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChange(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAutoClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAutoClosed", zap.String("ticket_id", event.TicketID))
	// Owners get an email for sweep closures; they did not trigger them.
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
