package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/craftd/internal/history"
)

func TestSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New(path)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	code := 0
	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type:       history.EventStopped,
		OccurredAt: time.Now().UTC(),
		ID:         "id-1",
		Name:       "alpha",
		Status:     "stopped",
		ExitCode:   &code,
	}))
	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type:       history.EventStarted,
		OccurredAt: time.Now().UTC(),
		ID:         "id-1",
		Name:       "alpha",
		Status:     "running",
	}))

	var n int
	require.NoError(t, sink.db.QueryRow(`SELECT COUNT(*) FROM server_history`).Scan(&n))
	assert.Equal(t, 2, n)

	var event string
	var exit *int64
	require.NoError(t, sink.db.QueryRow(
		`SELECT event, exit_code FROM server_history WHERE event = 'stopped'`).Scan(&event, &exit))
	assert.Equal(t, "stopped", event)
	require.NotNil(t, exit)
	assert.EqualValues(t, 0, *exit)
}

func TestSinkDSNPrefix(t *testing.T) {
	sink, err := New("sqlite://:memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type: history.EventCreated, ID: "id-1", Name: "alpha", Status: "stopped",
		OccurredAt: time.Now().UTC(),
	}))
}

func TestSinkEmptyDSN(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}
