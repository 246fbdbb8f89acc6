package relay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := encodeEnvelope("order_42", []byte(`{"event":"orderUpdated","data":{"id":42}}`))
	require.NoError(t, err)

	group, frame, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "order_42", group)
	assert.JSONEq(t, `{"event":"orderUpdated","data":{"id":42}}`, string(frame))
}

func TestEnvelopeRejectsBadInput(t *testing.T) {
	_, err := encodeEnvelope("order_1", []byte("not json"))
	assert.Error(t, err)

	_, _, err = decodeEnvelope([]byte(`{"group":"","frame":{}}`))
	assert.Error(t, err)

	_, _, err = decodeEnvelope([]byte(`garbage`))
	assert.Error(t, err)
}

func TestNewRedisRelay_RequiresAddress(t *testing.T) {
	_, err := NewRedisRelay(context.Background(), Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRedisRelay_ForwardsAcrossInstances(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := Options{Addr: addr, Channel: "test:realtime"}

	publisher, err := NewRedisRelay(ctx, opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	subscriber, err := NewRedisRelay(ctx, opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = subscriber.Close() })
	require.NoError(t, subscriber.Ping(ctx))

	type delivery struct {
		group string
		frame string
	}
	received := make(chan delivery, 1)

	fwdCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	require.NoError(t, subscriber.StartForwarder(fwdCtx, func(group string, frame []byte) {
		received <- delivery{group: group, frame: string(frame)}
	}))

	require.NoError(t, publisher.Publish(ctx, "adminRoom", []byte(`{"event":"orderPlaced","data":{"id":7}}`)))

	select {
	case got := <-received:
		assert.Equal(t, "adminRoom", got.group)
		assert.JSONEq(t, `{"event":"orderPlaced","data":{"id":7}}`, got.frame)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed frame")
	}
}
