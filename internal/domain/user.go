package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User - пользователь бота. ID приходит извне (идентификатор мессенджера).
type User struct {
	ID   int64
	Name string
	// Balance может уйти в минус: AddBalance не проверяет нижнюю границу.
	Balance decimal.Decimal
	Orders  int64
	// ReferredBy задаётся только при создании и больше не меняется.
	ReferredBy *int64
	Refs       int64
	LastBonus  *time.Time
}

// NewUser возвращает пользователя со всеми значениями по умолчанию.
// Любой upsert-путь (AddBalance, SetLastBonusTime) создаёт запись именно в таком виде.
func NewUser(id int64, name string, referredBy *int64) User {
	var ref *int64
	if referredBy != nil {
		v := *referredBy
		ref = &v
	}
	return User{
		ID:         id,
		Name:       name,
		Balance:    decimal.Zero,
		ReferredBy: ref,
	}
}

// UpdateResult сообщает, применилось ли условное обновление.
// Applied=false означает no-op: условие не выполнилось или запись не найдена.
type UpdateResult struct {
	Applied bool
}
