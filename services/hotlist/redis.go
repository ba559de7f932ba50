package hotlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealmungchi/dealhound/internal/deal"
)

// RedisPublisher implements Publisher on a single Redis key holding the
// JSON array of entries. The key is fully overwritten on every publish,
// so readers always see the latest complete list, never a partial one.
type RedisPublisher struct {
	client   *redis.Client
	key      string
	capacity int

	// mu serializes the read-modify-write on the list. Concurrent
	// publishes must not lose entries or exceed capacity.
	mu     sync.Mutex
	lastID int64
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a new Redis-backed hot-list publisher.
func NewRedisPublisher(addr string, db int, key string, capacity int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewRedisPublisherWithClient(client, key, capacity)
}

// NewRedisPublisherWithClient wraps an existing client (used by tests).
func NewRedisPublisherWithClient(client *redis.Client, key string, capacity int) *RedisPublisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisPublisher{
		client:   client,
		key:      key,
		capacity: capacity,
	}
}

// PublishDeal prepends the deal's entry and replaces the published list.
func (p *RedisPublisher) PublishDeal(ctx context.Context, d *deal.Deal) (deal.HotListEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := d.Entry(p.nextEntryID())

	current, err := p.read(ctx)
	if err != nil {
		return deal.HotListEntry{}, err
	}

	list := append([]deal.HotListEntry{entry}, current...)
	if len(list) > p.capacity {
		list = list[:p.capacity]
	}

	data, err := json.Marshal(list)
	if err != nil {
		return deal.HotListEntry{}, fmt.Errorf("failed to marshal hot list: %w", err)
	}

	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return deal.HotListEntry{}, fmt.Errorf("failed to publish hot list: %w", err)
	}

	// Per-deal detail record for the audit trail, keyed by entry id.
	detail, err := json.Marshal(entry)
	if err != nil {
		return deal.HotListEntry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}
	detailKey := fmt.Sprintf("%s:deal:%d", p.key, entry.ID)
	if err := p.client.Set(ctx, detailKey, detail, 0).Err(); err != nil {
		return deal.HotListEntry{}, fmt.Errorf("failed to write deal detail: %w", err)
	}

	return entry, nil
}

// Read returns the current published list, newest first.
func (p *RedisPublisher) Read(ctx context.Context) ([]deal.HotListEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(ctx)
}

// read fetches and decodes the list. Callers hold p.mu.
func (p *RedisPublisher) read(ctx context.Context) ([]deal.HotListEntry, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hot list: %w", err)
	}

	var list []deal.HotListEntry
	if err := json.Unmarshal(data, &list); err != nil {
		// An unreadable list is replaced wholesale on the next publish.
		return nil, nil
	}
	return list, nil
}

// nextEntryID derives a time-based id, bumped when two publishes land
// in the same nanosecond so ids stay strictly increasing. Callers hold
// p.mu.
func (p *RedisPublisher) nextEntryID() int64 {
	id := time.Now().UnixNano()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id
	return id
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
