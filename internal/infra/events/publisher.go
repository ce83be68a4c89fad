package events

import (
	"context"
	"encoding/json"
	"sync"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans events out on a redis pub/sub channel. Publication is
// fire-and-forget from the caller's perspective.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = "bioshield:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// MemoryPublisher records events for tests and single-process deployments.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

var (
	_ usecase.EventPublisher = (*RedisPublisher)(nil)
	_ usecase.EventPublisher = (*MemoryPublisher)(nil)
)
