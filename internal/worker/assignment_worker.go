package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/queue"
)

// Assigner distributes one ticket.
type Assigner interface {
	AutoAssign(ctx context.Context, ticketID int64) error
}

// TicketSource delivers queued ticket ids to a handler until ctx ends.
type TicketSource interface {
	Consume(ctx context.Context, handler queue.Handler) error
}

// AssignmentWorker drains the assignment queue.
type AssignmentWorker struct {
	source   TicketSource
	assigner Assigner
	logger   *zap.Logger
}

// NewAssignmentWorker builds a worker.
func NewAssignmentWorker(source TicketSource, assigner Assigner, logger *zap.Logger) *AssignmentWorker {
	return &AssignmentWorker{
		source:   source,
		assigner: assigner,
		logger:   logger.With(zap.String("component", "assignment_worker")),
	}
}

// Run blocks until ctx is cancelled.
func (w *AssignmentWorker) Run(ctx context.Context) error {
	w.logger.Info("assignment worker started")
	defer w.logger.Info("assignment worker stopped")
	return w.source.Consume(ctx, w.Handle)
}

// Handle assigns one ticket. A returned error leaves the message for
// redelivery.
func (w *AssignmentWorker) Handle(ctx context.Context, ticketID int64) error {
	if err := w.assigner.AutoAssign(ctx, ticketID); err != nil {
		w.logger.Warn("automatic assignment failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return err
	}
	return nil
}
