package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
)

func TestConnectWithRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	dial := func(string, ...nats.Option) (*nats.Conn, error) {
		calls++
		return nil, errors.New("connection refused")
	}
	cfg := config.NATSConfig{URL: "nats://unused", ConnectAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	_, err := connectWithRetry(context.Background(), cfg, zap.NewNop(), dial)
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
	require.Equal(t, 3, calls)
}

func TestConnectWithRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	dial := func(string, ...nats.Option) (*nats.Conn, error) {
		calls++
		cancel()
		return nil, errors.New("connection refused")
	}
	cfg := config.NATSConfig{ConnectAttempts: 10, InitialBackoff: time.Hour}

	_, err := connectWithRetry(ctx, cfg, zap.NewNop(), dial)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestConnectWithRetrySucceedsLater(t *testing.T) {
	calls := 0
	want := &nats.Conn{}
	dial := func(string, ...nats.Option) (*nats.Conn, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("not yet")
		}
		return want, nil
	}
	cfg := config.NATSConfig{ConnectAttempts: 5, InitialBackoff: time.Millisecond}

	conn, err := connectWithRetry(context.Background(), cfg, zap.NewNop(), dial)
	require.NoError(t, err)
	require.Same(t, want, conn)
}

func TestNextBackoff(t *testing.T) {
	require.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	require.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
	require.Equal(t, time.Second, nextBackoff(0, 0))
}
