package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// userRepositoryInMemory - in-memory реализация UserRepository.
type userRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[int64]domain.User
}

// NewUserRepository возвращает in-memory репозиторий пользователей для разработки и тестов.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{
		items: make(map[int64]domain.User),
	}
}

func (r *userRepositoryInMemory) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[id]
	return ok, nil
}

func (r *userRepositoryInMemory) CreateIfAbsent(_ context.Context, user domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[user.ID]; exists {
		return false, nil
	}
	r.items[user.ID] = cloneUser(user)
	return true, nil
}

func (r *userRepositoryInMemory) Get(_ context.Context, id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *userRepositoryInMemory) AddBalance(_ context.Context, id int64, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.getOrDefaultLocked(id)
	user.Balance = user.Balance.Add(amount)
	r.items[id] = user
	return nil
}

func (r *userRepositoryInMemory) Balance(_ context.Context, id int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return decimal.Zero, nil
	}
	return user.Balance, nil
}

func (r *userRepositoryInMemory) IncrementRefs(_ context.Context, id int64) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.items[id]
	if !ok {
		return domain.UpdateResult{}, nil
	}
	user.Refs++
	r.items[id] = user
	return domain.UpdateResult{Applied: true}, nil
}

func (r *userRepositoryInMemory) Refs(_ context.Context, id int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.items[id].Refs, nil
}

func (r *userRepositoryInMemory) IncrementOrders(_ context.Context, id int64) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.items[id]
	if !ok {
		return domain.UpdateResult{}, nil
	}
	user.Orders++
	r.items[id] = user
	return domain.UpdateResult{Applied: true}, nil
}

func (r *userRepositoryInMemory) LastBonus(_ context.Context, id int64) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok || user.LastBonus == nil {
		return nil, nil
	}
	at := *user.LastBonus
	return &at, nil
}

func (r *userRepositoryInMemory) SetLastBonus(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.getOrDefaultLocked(id)
	user.LastBonus = &at
	r.items[id] = user
	return nil
}

func (r *userRepositoryInMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.items)), nil
}

// getOrDefaultLocked возвращает пользователя или новую запись со значениями по умолчанию.
func (r *userRepositoryInMemory) getOrDefaultLocked(id int64) domain.User {
	if user, ok := r.items[id]; ok {
		return user
	}
	return domain.NewUser(id, "", nil)
}

func cloneUser(user domain.User) domain.User {
	if user.ReferredBy != nil {
		ref := *user.ReferredBy
		user.ReferredBy = &ref
	}
	if user.LastBonus != nil {
		at := *user.LastBonus
		user.LastBonus = &at
	}
	return user
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
