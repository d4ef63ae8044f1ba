package datastore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/storage/memory"
)

// stepClock выдаёт строго возрастающее время: каждый вызов +1s.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func memoryBackend() Backend {
	users := memory.NewUserRepository()
	return Backend{
		Name:     "memory",
		Users:    users,
		Orders:   memory.NewOrderRepository(users),
		Activity: memory.NewActivityRepository(),
		Stock:    memory.NewStockRepository(),
	}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	clock := newStepClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	store, err := New(memoryBackend(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

type publishedEvent struct {
	topic string
	key   string
	event interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(topic string, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return p.err
}

func (p *recordingPublisher) snapshot() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

var errBackendDown = errors.New("connection refused")

// failingStock отказывает на Count и Reduce; остальные методы не вызываются.
type failingStock struct {
	domain.StockRepository
}

func (failingStock) Count(context.Context) (int64, error) {
	return 0, errBackendDown
}

func (failingStock) Reduce(context.Context, string, int64) (domain.UpdateResult, error) {
	return domain.UpdateResult{}, errBackendDown
}

type failingActivity struct {
	domain.ActivityRepository
}

func (failingActivity) Append(context.Context, domain.ActivityEntry) error {
	return errBackendDown
}
