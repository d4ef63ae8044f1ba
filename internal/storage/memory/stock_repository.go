package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// stockRepositoryInMemory - каталог остатков в памяти.
type stockRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.StockEntry
}

// NewStockRepository создаёт in-memory реализацию StockRepository.
func NewStockRepository() domain.StockRepository {
	return &stockRepositoryInMemory{items: make(map[string]domain.StockEntry)}
}

func (r *stockRepositoryInMemory) Upsert(_ context.Context, entry domain.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[entry.Code] = entry
	return nil
}

func (r *stockRepositoryInMemory) Get(_ context.Context, code string) (domain.StockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.items[code]
	if !ok {
		return domain.StockEntry{}, domain.ErrStockNotFound
	}
	return entry, nil
}

func (r *stockRepositoryInMemory) List(_ context.Context, offset, limit int) ([]domain.StockEntry, error) {
	r.mu.RLock()
	entries := make([]domain.StockEntry, 0, len(r.items))
	for _, entry := range r.items {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	domain.SortStockEntries(entries)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []domain.StockEntry{}, nil
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *stockRepositoryInMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.items)), nil
}

// Reduce списывает остаток под мьютексом: проверка и запись атомарны.
func (r *stockRepositoryInMemory) Reduce(_ context.Context, code string, qty int64) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[code]
	if !ok || entry.Stock < qty {
		return domain.UpdateResult{}, nil
	}
	entry.Stock -= qty
	r.items[code] = entry
	return domain.UpdateResult{Applied: true}, nil
}

var _ domain.StockRepository = (*stockRepositoryInMemory)(nil)
