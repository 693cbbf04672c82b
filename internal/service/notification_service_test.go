package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/domain"
	"github.com/spec-kit/demand-service/internal/events"
)

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestNotificationsRouteByEventType(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	notifier := &recordingNotifier{}
	svc := NewNotificationService(dispatcher, notifier, zap.NewNop(), config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "http://hooks.local/tickets",
	})
	svc.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: 7,
		Payload:  events.TicketAssignedPayload{ResolverID: 2, Automatic: true},
	}))
	require.Len(t, notifier.sent, 2)
	require.Equal(t, ChannelEmail, notifier.sent[0].Channel)
	require.Equal(t, ChannelWebhook, notifier.sent[1].Channel)
	require.Equal(t, "Ticket 7 assigned to user 2", notifier.sent[0].Subject)

	notifier.sent = nil
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: 7,
		Payload: events.TicketTransitionedPayload{
			Action:    "respond",
			OldStatus: domain.StatusInProgress,
			NewStatus: domain.StatusResponded,
		},
	}))
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "http://hooks.local/tickets", notifier.sent[0].Target)
	require.Equal(t, "Ticket 7: respond (IN_PROGRESS -> RESPONDED)", notifier.sent[0].Subject)
}

func TestNotificationsSkipUnconfiguredChannels(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewNotificationService(nil, notifier, zap.NewNop(), config.NotificationConfig{EmailFrom: "noreply@example.com"})

	err := svc.handle(context.Background(), events.Event{
		Type:     events.EventTicketReopened,
		TicketID: 9,
		Payload:  events.TicketReopenedPayload{OriginalTicketID: 3},
	})
	require.NoError(t, err)
	require.Empty(t, notifier.sent)
}

func TestNotificationFailureIsReported(t *testing.T) {
	notifier := &recordingNotifier{err: errBoom}
	svc := NewNotificationService(nil, notifier, zap.NewNop(), config.NotificationConfig{WebhookURL: "http://hooks.local"})

	err := svc.handle(context.Background(), events.Event{Type: events.EventTicketOpened, TicketID: 4})
	require.Error(t, err)
	require.Contains(t, err.Error(), "webhook: boom")
}
