package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/config"
	"github.com/spec-kit/bug-tracker/internal/events"
)

// NotificationService handles emitting notifications for domain events.
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
	n.dispatcher.Subscribe(events.EventBugCreated, n.handleBugCreated)
	n.dispatcher.Subscribe(events.EventBugAssigned, n.handleBugAssigned)
	n.dispatcher.Subscribe(events.EventBugStatusChanged, n.handleBugStatusChanged)
	n.dispatcher.Subscribe(events.EventBugCommented, n.handleBugCommented)
	n.dispatcher.Subscribe(events.EventBugDeleted, n.handleBugDeleted)
}

func (n *NotificationService) handleBugCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("BugCreated", zap.String("bug_id", event.BugID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBugAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("BugAssigned", zap.String("bug_id", event.BugID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBugStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("BugStatusChanged", zap.String("bug_id", event.BugID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBugCommented(ctx context.Context, event events.Event) error {
	n.logger.Info("BugCommented", zap.String("bug_id", event.BugID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBugDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("BugDeleted", zap.String("bug_id", event.BugID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("bug_id", event.BugID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("bug_id", event.BugID),
		zap.String("event_type", string(event.Type)))
}
