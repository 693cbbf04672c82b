package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryTracerLogsSlowAndFailedQueries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := newQueryTracer(zap.New(core), 100*time.Millisecond)

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracer.now = func() time.Time { return clock }

	run := func(sql string, took time.Duration, err error) {
		ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
		clock = clock.Add(took)
		tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: err})
	}

	run("SELECT 1", 5*time.Millisecond, nil)
	run("SELECT id\n   FROM tickets", 250*time.Millisecond, nil)
	run("UPDATE tickets SET status=$1", time.Millisecond, errors.New("deadlock detected"))
	run("SELECT id FROM users WHERE id=$1", time.Millisecond, pgx.ErrNoRows)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "slow query", entries[0].Message)
	require.Equal(t, "SELECT id FROM tickets", entries[0].ContextMap()["sql"])
	require.Equal(t, "query failed", entries[1].Message)
}
