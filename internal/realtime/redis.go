package realtime

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisRelay fans events out to every instance through a Redis pub/sub channel
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewRedisRelay creates a relay on the given pub/sub channel
func NewRedisRelay(client *redis.Client, channel string, logger *logrus.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

// DialRedis parses url, connects and pings the server
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisRelay) Subscribe(ctx context.Context, deliver func(msg []byte)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Infof("Subscribed to redis channel %s", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(m.Payload))
		}
	}
}
