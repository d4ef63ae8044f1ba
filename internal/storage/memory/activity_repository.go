package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// activityRepositoryInMemory хранит журнал действий в памяти (для разработки/тестов).
type activityRepositoryInMemory struct {
	mu      sync.RWMutex
	entries map[int64][]domain.ActivityEntry
}

// NewActivityRepository создаёт in-memory реализацию ActivityRepository.
func NewActivityRepository() domain.ActivityRepository {
	return &activityRepositoryInMemory{entries: make(map[int64][]domain.ActivityEntry)}
}

// Append добавляет запись в журнал.
func (r *activityRepositoryInMemory) Append(_ context.Context, entry domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.UserID] = append(r.entries[entry.UserID], entry)
	return nil
}

// ListByUser возвращает записи пользователя, новые первыми.
func (r *activityRepositoryInMemory) ListByUser(_ context.Context, userID int64, limit int) ([]domain.ActivityEntry, error) {
	r.mu.RLock()
	entries := r.entries[userID]
	result := make([]domain.ActivityEntry, len(entries))
	copy(result, entries)
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.After(result[j].Time)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.ActivityRepository = (*activityRepositoryInMemory)(nil)
