package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// orderRepositoryInMemory - простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
	users domain.UserRepository
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
// users используется для инкремента счётчика заказов владельца; nil отключает инкремент.
func NewOrderRepository(users domain.UserRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
		users: users,
	}
}

// Create сохраняет заказ и увеличивает счётчик заказов пользователя.
// Как и в документных хранилищах, это две независимые записи.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) error {
	r.mu.Lock()
	if _, exists := r.items[order.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("order %s already exists", order.ID)
	}
	r.items[order.ID] = order
	r.mu.Unlock()

	if r.users == nil {
		return nil
	}
	if _, err := r.users.IncrementOrders(ctx, order.UserID); err != nil {
		return fmt.Errorf("increment user orders: %w", err)
	}
	return nil
}

func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, apiOrderID int64, status domain.OrderStatus) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Обновляем тот же заказ, который вернёт GetByAPIID: самый новый.
	var (
		target domain.Order
		found  bool
	)
	for _, order := range r.items {
		if order.APIOrderID != apiOrderID {
			continue
		}
		if !found || olderOrder(target, order) {
			target = order
			found = true
		}
	}
	if !found {
		return domain.UpdateResult{}, nil
	}

	target.Status = status
	r.items[target.ID] = target
	return domain.UpdateResult{Applied: true}, nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (r *orderRepositoryInMemory) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		result = append(result, order)
	}

	sortNewestFirst(result)
	return result, nil
}

func (r *orderRepositoryInMemory) GetByAPIID(_ context.Context, apiOrderID int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.Order, 0, 1)
	for _, order := range r.items {
		if order.APIOrderID == apiOrderID {
			matches = append(matches, order)
		}
	}
	if len(matches) == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	sortNewestFirst(matches)
	return matches[0], nil
}

func (r *orderRepositoryInMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.items)), nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return olderOrder(orders[j], orders[i])
	})
}

func olderOrder(a, b domain.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
