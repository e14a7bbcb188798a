package broker

import (
	"context"
	"encoding/json"
	"time"

	"aeolus/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "aeolus:chan:"

// Redis fans envelopes out over Redis pub/sub, one Redis channel per relay
// channel, pattern-subscribed on the receive side.
type Redis struct {
	rdb *redis.Client
	sub *redis.PubSub
}

func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{rdb: rdb}, nil
}

func (b *Redis) Publish(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	return b.rdb.Publish(ctx, redisChannelPrefix+channel, data).Err()
}

func (b *Redis) Subscribe(h Handler) error {
	b.sub = b.rdb.PSubscribe(context.Background(), redisChannelPrefix+"*")
	go func() {
		for msg := range b.sub.Channel() {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warnf("redis broker: bad envelope on %s: %v", msg.Channel, err)
				continue
			}
			h(env)
		}
	}()
	return nil
}

func (b *Redis) Close() error {
	if b.sub != nil {
		_ = b.sub.Close()
	}
	return b.rdb.Close()
}
