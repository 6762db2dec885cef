package config

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Publisher mirrors a published config snapshot to other processes. The
// only implementation in this module is Redis pub/sub (domain stack:
// "optional pub/sub transport for update_section publication across
// multiple server processes sharing one config").
type Publisher interface {
	Publish(ctx context.Context, cfg AppConfig) error
}

// RedisPublisher publishes the YAML-encoded config snapshot on a Redis
// channel. It is optional: Manager works with no Publisher installed, which
// is the single-process default.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and returns a Publisher for channel.
func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return &RedisPublisher{client: client, channel: cfg.Channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Close releases the underlying Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe listens on the configured channel and invokes onUpdate with each
// received config snapshot, blocking until ctx is cancelled. Use this on
// follower processes that should adopt another process's update_section
// publication.
func (p *RedisPublisher) Subscribe(ctx context.Context, onUpdate func(AppConfig)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var cfg AppConfig
			if err := yaml.Unmarshal([]byte(msg.Payload), &cfg); err != nil {
				continue
			}
			onUpdate(cfg)
		}
	}
}
