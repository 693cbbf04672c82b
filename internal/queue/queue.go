// Package queue carries ticket ids to the automatic assignment worker over
// NATS JetStream.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/observability"
)

// Publisher enqueues tickets for automatic assignment.
type Publisher interface {
	PublishAssignment(ctx context.Context, ticketID int64) error
}

// Handler processes one ticket id. A returned error causes redelivery.
type Handler func(ctx context.Context, ticketID int64) error

// ErrUndecodable marks payloads that will never be processable.
var ErrUndecodable = errors.New("undecodable assignment message")

// EnsureStream creates or updates the work-queue stream for cfg.Subject.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg config.NATSConfig) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	return stream, nil
}

type jetStreamPublisher struct {
	js      jetstream.JetStream
	subject string
	logger  *zap.Logger
}

// NewPublisher returns a JetStream publisher on conn.
func NewPublisher(ctx context.Context, conn *nats.Conn, cfg config.NATSConfig, logger *zap.Logger) (Publisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := EnsureStream(ctx, js, cfg); err != nil {
		return nil, err
	}
	return &jetStreamPublisher{js: js, subject: cfg.Subject, logger: logger.With(zap.String("component", "queue"))}, nil
}

// PublishAssignment publishes the ticket id as a JSON integer.
func (p *jetStreamPublisher) PublishAssignment(ctx context.Context, ticketID int64) error {
	payload, err := EncodeTicketID(ticketID)
	if err != nil {
		return err
	}
	ack, err := p.js.Publish(ctx, p.subject, payload, jetstream.WithMsgID(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("publish assignment for ticket %d: %w", ticketID, err)
	}
	p.logger.Debug("assignment enqueued", zap.Int64("ticket_id", ticketID), zap.Uint64("seq", ack.Sequence))
	return nil
}

// EncodeTicketID renders the message payload.
func EncodeTicketID(ticketID int64) ([]byte, error) {
	return json.Marshal(ticketID)
}

// DecodeTicketID parses a message payload.
func DecodeTicketID(data []byte) (int64, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: ticket id %s", ErrUndecodable, strconv.FormatInt(id, 10))
	}
	return id, nil
}

// Consumer pulls assignment messages from a durable consumer.
type Consumer struct {
	consumer  jetstream.Consumer
	batch     int
	fetchWait time.Duration
	nakDelay  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewConsumer binds a durable pull consumer with explicit acknowledgement.
func NewConsumer(ctx context.Context, conn *nats.Conn, cfg config.NATSConfig, metrics *observability.Metrics, logger *zap.Logger) (*Consumer, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	stream, err := EnsureStream(ctx, js, cfg)
	if err != nil {
		return nil, err
	}
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: cfg.Subject,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure consumer %s: %w", cfg.Durable, err)
	}

	batch := cfg.FetchBatch
	if batch <= 0 {
		batch = 1
	}
	fetchWait := cfg.FetchWait
	if fetchWait <= 0 {
		fetchWait = 5 * time.Second
	}
	return &Consumer{
		consumer:  cons,
		batch:     batch,
		fetchWait: fetchWait,
		nakDelay:  cfg.NakDelay,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "queue")),
	}, nil
}

// Consume fetches messages until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		batch, err := c.consumer.Fetch(c.batch, jetstream.FetchMaxWait(c.fetchWait))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.fetchWait):
			}
			continue
		}
		for msg := range batch.Messages() {
			c.settle(msg, Process(ctx, msg.Data(), handler))
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && ctx.Err() == nil {
			c.logger.Warn("fetch batch ended with error", zap.Error(err))
		}
	}
}

// Ack is the acknowledgement a delivery receives.
type Ack string

const (
	AckDone Ack = "ack"
	AckNak  Ack = "nak"
	AckTerm Ack = "term"
)

// Process decodes data, runs handler and decides the acknowledgement.
func Process(ctx context.Context, data []byte, handler Handler) Ack {
	ticketID, err := DecodeTicketID(data)
	if err != nil {
		return AckTerm
	}
	if err := handler(ctx, ticketID); err != nil {
		return AckNak
	}
	return AckDone
}

func (c *Consumer) settle(msg jetstream.Msg, ack Ack) {
	var err error
	switch ack {
	case AckDone:
		err = msg.Ack()
	case AckNak:
		if c.nakDelay > 0 {
			err = msg.NakWithDelay(c.nakDelay)
		} else {
			err = msg.Nak()
		}
	case AckTerm:
		c.logger.Error("dropping undecodable assignment message", zap.ByteString("payload", msg.Data()))
		err = msg.Term()
	}
	c.metrics.RecordDelivery(string(ack))
	if err != nil {
		c.logger.Warn("acknowledgement failed", zap.String("ack", string(ack)), zap.Error(err))
	}
}
