package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/events"
)

// Channel names a notification transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Notification is one rendered message for a channel.
type Notification struct {
	Channel  Channel
	Target   string
	TicketID int64
	Subject  string
	Event    events.Event
}

// Notifier delivers rendered notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// logNotifier records notifications in the log instead of delivering them.
type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Send(_ context.Context, n Notification) error {
	l.logger.Debug("notification",
		zap.String("channel", string(n.Channel)),
		zap.String("target", n.Target),
		zap.Int64("ticket_id", n.TicketID),
		zap.String("subject", n.Subject),
	)
	return nil
}

// NotificationService turns ticket events into notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil notifier logs instead of
// delivering.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	logger = logger.With(zap.String("component", "notifications"))
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// channelsByEvent lists where each event type is announced.
var channelsByEvent = map[events.EventType][]Channel{
	events.EventTicketOpened:       {ChannelEmail, ChannelWebhook},
	events.EventTicketAssigned:     {ChannelEmail, ChannelWebhook},
	events.EventTicketTransitioned: {ChannelWebhook},
	events.EventTicketReopened:     {ChannelWebhook},
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range channelsByEvent {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))

	var failed []string
	for _, channel := range channelsByEvent[event.Type] {
		target := n.target(channel)
		if target == "" {
			continue
		}
		err := n.notifier.Send(ctx, Notification{
			Channel:  channel,
			Target:   target,
			TicketID: event.TicketID,
			Subject:  subject(event),
			Event:    event,
		})
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", channel, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify ticket %d: %s", event.TicketID, strings.Join(failed, "; "))
	}
	return nil
}

func (n *NotificationService) target(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return strings.TrimSpace(n.cfg.EmailFrom)
	case ChannelWebhook:
		return strings.TrimSpace(n.cfg.WebhookURL)
	}
	return ""
}

func subject(event events.Event) string {
	switch p := event.Payload.(type) {
	case events.TicketOpenedPayload:
		return fmt.Sprintf("Ticket %d opened for %s", event.TicketID, p.ResolverDepartment)
	case events.TicketAssignedPayload:
		return fmt.Sprintf("Ticket %d assigned to user %d", event.TicketID, p.ResolverID)
	case events.TicketTransitionedPayload:
		return fmt.Sprintf("Ticket %d: %s (%s -> %s)", event.TicketID, p.Action, p.OldStatus, p.NewStatus)
	case events.TicketReopenedPayload:
		return fmt.Sprintf("Ticket %d reopens ticket %d", event.TicketID, p.OriginalTicketID)
	}
	return fmt.Sprintf("Ticket %d: %s", event.TicketID, event.Type)
}
