package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
)

// NATS wraps the broker connection used by the assignment queue.
type NATS struct {
	Conn *nats.Conn
}

// dialer has the signature of nats.Connect.
type dialer func(url string, opts ...nats.Option) (*nats.Conn, error)

// NewNATS connects to the broker, retrying with exponential backoff up to
// cfg.ConnectAttempts times. It gives up early when ctx is done.
func NewNATS(ctx context.Context, cfg config.NATSConfig, name string, logger *zap.Logger) (*NATS, error) {
	conn, err := connectWithRetry(ctx, cfg, logger, nats.Connect,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.InitialBackoff),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn}, nil
}

func connectWithRetry(ctx context.Context, cfg config.NATSConfig, logger *zap.Logger, dial dialer, opts ...nats.Option) (*nats.Conn, error) {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := dial(cfg.URL, opts...)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		logger.Warn("nats connection failed; retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect nats: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay = nextBackoff(delay, cfg.MaxBackoff)
	}
	return nil, fmt.Errorf("connect nats after %d attempts: %w", attempts, lastErr)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next <= 0 {
		next = time.Second
	}
	if max > 0 && next > max {
		return max
	}
	return next
}

// Close drains the connection.
func (n *NATS) Close() {
	if n != nil && n.Conn != nil {
		_ = n.Conn.Drain()
	}
}

// Ping reports whether the connection is currently established.
func (n *NATS) Ping(context.Context) error {
	if n == nil || n.Conn == nil {
		return fmt.Errorf("nats connection not configured")
	}
	if !n.Conn.IsConnected() {
		return fmt.Errorf("nats connection status %s", n.Conn.Status())
	}
	return nil
}
