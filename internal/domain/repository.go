package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserRepository описывает требования к хранилищу пользователей.
type UserRepository interface {
	// Exists проверяет наличие пользователя.
	Exists(ctx context.Context, id int64) (bool, error)
	// CreateIfAbsent вставляет пользователя, только если его ещё нет.
	// Существующая запись не меняется; created=false в этом случае.
	CreateIfAbsent(ctx context.Context, user User) (bool, error)
	// Get возвращает пользователя или ErrUserNotFound.
	Get(ctx context.Context, id int64) (User, error)
	// AddBalance атомарно прибавляет amount (может быть отрицательным).
	// Отсутствующий пользователь создаётся со значениями по умолчанию.
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error
	// Balance возвращает баланс или 0, если пользователя нет.
	Balance(ctx context.Context, id int64) (decimal.Decimal, error)
	// IncrementRefs увеличивает счётчик рефералов; пользователя не создаёт.
	IncrementRefs(ctx context.Context, id int64) (UpdateResult, error)
	// Refs возвращает число рефералов или 0.
	Refs(ctx context.Context, id int64) (int64, error)
	// IncrementOrders увеличивает счётчик заказов; пользователя не создаёт.
	IncrementOrders(ctx context.Context, id int64) (UpdateResult, error)
	// LastBonus возвращает время последнего бонуса или nil.
	LastBonus(ctx context.Context, id int64) (*time.Time, error)
	// SetLastBonus записывает время бонуса, создавая пользователя при необходимости.
	SetLastBonus(ctx context.Context, id int64, at time.Time) error
	// Count возвращает общее число пользователей.
	Count(ctx context.Context) (int64, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ и увеличивает счётчик заказов владельца.
	Create(ctx context.Context, order Order) error
	// UpdateStatus меняет статус заказа, найденного по api_order_id.
	UpdateStatus(ctx context.Context, apiOrderID int64, status OrderStatus) (UpdateResult, error)
	// ListByUser возвращает все заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// GetByAPIID возвращает заказ по внешнему идентификатору или ErrOrderNotFound.
	GetByAPIID(ctx context.Context, apiOrderID int64) (Order, error)
	// Count возвращает общее число заказов.
	Count(ctx context.Context) (int64, error)
}

// ActivityRepository хранит журнал действий пользователей.
type ActivityRepository interface {
	Append(ctx context.Context, entry ActivityEntry) error
	// ListByUser возвращает записи пользователя, новые первыми; limit<=0 - без ограничения.
	ListByUser(ctx context.Context, userID int64, limit int) ([]ActivityEntry, error)
}

// StockRepository описывает каталог остатков по странам.
type StockRepository interface {
	// Upsert создаёт или полностью заменяет запись по коду.
	Upsert(ctx context.Context, entry StockEntry) error
	// Get возвращает запись или ErrStockNotFound.
	Get(ctx context.Context, code string) (StockEntry, error)
	// List возвращает срез каталога в порядке StockLess.
	List(ctx context.Context, offset, limit int) ([]StockEntry, error)
	// Count возвращает число записей каталога.
	Count(ctx context.Context) (int64, error)
	// Reduce списывает qty, только если stock >= qty.
	Reduce(ctx context.Context, code string, qty int64) (UpdateResult, error)
}
