package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisNS = "tripsync:v1"

// RedisChannel builds the pub/sub channel name for one entity stream.
func RedisChannel(kind, entityID string) string {
	return fmt.Sprintf("%s:%s:%s", redisNS, kind, entityID)
}

// redisEnvelope is the published message shape: the logical channel name
// travels inside the payload because redis pub/sub has a single topic per
// entity.
type redisEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// RedisTransport subscribes to one entity's pub/sub channel. It lets
// deployments that publish over redis instead of SSE reuse the same
// Client state machine.
type RedisTransport struct {
	rdb     *redis.Client
	channel string
}

func NewRedisTransport(rdb *redis.Client, kind, entityID string) *RedisTransport {
	return &RedisTransport{
		rdb:     rdb,
		channel: RedisChannel(kind, entityID),
	}
}

func (t *RedisTransport) Dial(ctx context.Context) (Conn, error) {
	const op = "stream.RedisTransport.Dial"

	sub := t.rdb.Subscribe(ctx, t.channel)

	// Receive forces the subscribe round-trip so a dead broker surfaces
	// here instead of on the first Recv.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &redisConn{
		sub: sub,
		ch:  sub.Channel(redis.WithChannelSize(256)),
	}, nil
}

type redisConn struct {
	sub *redis.PubSub
	ch  <-chan *redis.Message
}

func (c *redisConn) Recv() (Event, error) {
	for {
		m, ok := <-c.ch
		if !ok {
			return Event{}, errors.New("redis subscription closed")
		}

		var env redisEnvelope
		if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
			// Malformed message, drop it and keep the subscription.
			continue
		}

		return Event{Channel: env.Channel, Data: env.Data}, nil
	}
}

func (c *redisConn) Close() error {
	return c.sub.Close()
}
