// Package relay fans realtime frames out across server instances over
// Redis pub/sub.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	wsAdapter "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/websocket"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "pizza:realtime"

// Options holds the Redis connection settings.
type Options struct {
	Addr        string
	Password    string
	DB          int
	Channel     string
	DialTimeout time.Duration
}

// envelope is the payload published on the channel.
type envelope struct {
	Group string          `json:"group"`
	Frame json.RawMessage `json:"frame"`
}

// RedisRelay implements the gateway relay on a Redis channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

var _ wsAdapter.Relay = (*RedisRelay)(nil)

// NewRedisRelay connects to Redis and verifies the connection.
func NewRedisRelay(ctx context.Context, opts Options, logger *slog.Logger) (*RedisRelay, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With("component", "redis_relay", "channel", channel),
	}, nil
}

// Publish sends a group-addressed frame to every subscribed instance.
func (r *RedisRelay) Publish(ctx context.Context, group string, frame []byte) error {
	raw, err := encodeEnvelope(group, frame)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

// StartForwarder subscribes to the channel and calls onFrame for every
// message until ctx is cancelled.
func (r *RedisRelay) StartForwarder(ctx context.Context, onFrame func(group string, frame []byte)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				group, frame, err := decodeEnvelope([]byte(m.Payload))
				if err != nil {
					r.logger.Warn("bad relay payload", "error", err)
					continue
				}
				onFrame(group, frame)
			}
		}
	}()

	r.logger.Info("relay forwarder started")
	return nil
}

// Ping checks the Redis connection for readiness probes.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *RedisRelay) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func encodeEnvelope(group string, frame []byte) ([]byte, error) {
	if !json.Valid(frame) {
		return nil, errors.New("relay frame is not valid JSON")
	}
	return json.Marshal(envelope{Group: group, Frame: frame})
}

func decodeEnvelope(raw []byte) (string, []byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	if env.Group == "" || len(env.Frame) == 0 {
		return "", nil, errors.New("relay payload missing group or frame")
	}
	return env.Group, env.Frame, nil
}
