package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends notification messages to a Redis stream that a
// delivery worker consumes.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Notify(ctx context.Context, ownerID, subject, templateKey string, payload map[string]any) error {
	message := Message{
		OwnerID:   ownerID,
		Subject:   subject,
		Template:  templateKey,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	messageJSON, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"message": messageJSON,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}
