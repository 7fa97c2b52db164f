package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"marketplace/internal/telemetry"
)

// NewMockDB creates a pgxmock pool with cleanup wired to the test lifecycle.
func NewMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Cleanup(func() {
		mockPool.Close()
	})

	return mockPool
}

// NewTestLogger returns a silent logger with the same handler chain as main.
func NewTestLogger() *slog.Logger {
	baseHandler := slog.NewJSONHandler(io.Discard, nil)
	return slog.New(telemetry.NewTraceHandler(baseHandler))
}
