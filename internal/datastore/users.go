package datastore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// UserExists проверяет наличие пользователя.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return run(ctx, s, "users.exists", func(ctx context.Context) (bool, error) {
		return s.users.Exists(ctx, id)
	})
}

// CreateUserIfAbsent создаёт пользователя со значениями по умолчанию.
// Существующий пользователь не меняется (в том числе referredBy); created=false.
func (s *Store) CreateUserIfAbsent(ctx context.Context, id int64, name string, referredBy *int64) (bool, error) {
	return run(ctx, s, "users.create", func(ctx context.Context) (bool, error) {
		return s.users.CreateIfAbsent(ctx, domain.NewUser(id, name, referredBy))
	})
}

// GetUser возвращает пользователя или domain.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return run(ctx, s, "users.get", func(ctx context.Context) (domain.User, error) {
		return s.users.Get(ctx, id)
	})
}

// AddBalance атомарно прибавляет amount (может быть отрицательным).
// Отсутствующий пользователь создаётся со всеми значениями по умолчанию.
func (s *Store) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	return s.observe(ctx, "users.add_balance", func(ctx context.Context) error {
		return s.users.AddBalance(ctx, id, amount)
	})
}

// GetBalance возвращает баланс; 0 для отсутствующего пользователя.
func (s *Store) GetBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	return run(ctx, s, "users.balance", func(ctx context.Context) (decimal.Decimal, error) {
		return s.users.Balance(ctx, id)
	})
}

// IncrementReferralCount увеличивает refs на 1. Пользователь не создаётся:
// для отсутствующего Applied=false.
func (s *Store) IncrementReferralCount(ctx context.Context, id int64) (domain.UpdateResult, error) {
	res, err := run(ctx, s, "users.increment_refs", func(ctx context.Context) (domain.UpdateResult, error) {
		return s.users.IncrementRefs(ctx, id)
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	s.metrics.RecordGuardedUpdate("users.increment_refs", res.Applied)
	return res, nil
}

// GetReferralCount возвращает число рефералов; 0 для отсутствующего пользователя.
func (s *Store) GetReferralCount(ctx context.Context, id int64) (int64, error) {
	return run(ctx, s, "users.refs", func(ctx context.Context) (int64, error) {
		return s.users.Refs(ctx, id)
	})
}

// CountUsers возвращает число пользователей.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return run(ctx, s, "users.count", s.users.Count)
}

// CountOrders возвращает число заказов.
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	return run(ctx, s, "orders.count", s.orders.Count)
}

// GetLastBonusTime возвращает время последнего бонуса; nil, если его не было
// или пользователя нет.
func (s *Store) GetLastBonusTime(ctx context.Context, id int64) (*time.Time, error) {
	return run(ctx, s, "users.last_bonus", func(ctx context.Context) (*time.Time, error) {
		return s.users.LastBonus(ctx, id)
	})
}

// SetLastBonusTime записывает текущее время как время бонуса.
// В отличие от CreateUserIfAbsent это upsert: пользователь создаётся с дефолтами.
func (s *Store) SetLastBonusTime(ctx context.Context, id int64) error {
	return s.observe(ctx, "users.set_last_bonus", func(ctx context.Context) error {
		return s.users.SetLastBonus(ctx, id, s.now().UTC())
	})
}
