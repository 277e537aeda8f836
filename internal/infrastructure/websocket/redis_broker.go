package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nearbuy/pkg/logger"
)

const defaultRelayChannel = "nearbuy:chat:rooms"

// Relay carries room broadcasts between API instances.
type Relay interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
	// Subscribe delivers every published broadcast, including this
	// instance's own, until ctx is cancelled.
	Subscribe(ctx context.Context, deliver func(roomID string, payload []byte)) error
}

type relayEnvelope struct {
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload"`
}

type RedisRelay struct {
	client  *redis.Client
	channel string
}

var _ Relay = (*RedisRelay)(nil)

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client) *RedisRelay {
	return &RedisRelay{client: client, channel: defaultRelayChannel}
}

func (r *RedisRelay) Publish(ctx context.Context, roomID string, payload []byte) error {
	envelope, err := json.Marshal(relayEnvelope{RoomID: roomID, Payload: payload})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, envelope).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, deliver func(roomID string, payload []byte)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	log := logger.With("component", "redis_relay")
	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var envelope relayEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					log.Warn().Err(err).Msg("dropping malformed relay message")
					continue
				}
				deliver(envelope.RoomID, envelope.Payload)
			}
		}
	}()
	return nil
}
