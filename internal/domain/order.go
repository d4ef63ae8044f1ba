package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus - статус заказа во внешнем fulfillment API.
// Набор значений открытый: статусы выставляет внешний сервис.
type OrderStatus string

const (
	// OrderStatusPending - начальный статус любого нового заказа.
	OrderStatusPending OrderStatus = "pending"
)

// Order - заказ пользователя, размещённый во внешнем fulfillment API.
type Order struct {
	ID         string
	UserID     int64
	ServiceID  int64
	Link       string
	Quantity   int64
	Amount     decimal.Decimal
	APIOrderID int64
	Status     OrderStatus
	CreatedAt  time.Time
}

// NewOrder содержит входные данные для создания заказа.
type NewOrder struct {
	UserID     int64
	ServiceID  int64
	Link       string
	Quantity   int64
	Amount     decimal.Decimal
	APIOrderID int64
}

// Build собирает Order в статусе pending.
func (n NewOrder) Build(id string, createdAt time.Time) Order {
	return Order{
		ID:         id,
		UserID:     n.UserID,
		ServiceID:  n.ServiceID,
		Link:       n.Link,
		Quantity:   n.Quantity,
		Amount:     n.Amount,
		APIOrderID: n.APIOrderID,
		Status:     OrderStatusPending,
		CreatedAt:  createdAt,
	}
}

// NormalizeStatus обрезает пробелы и проверяет, что статус не пустой.
func NormalizeStatus(status OrderStatus) (OrderStatus, error) {
	trimmed := OrderStatus(strings.TrimSpace(string(status)))
	if trimmed == "" {
		return "", ErrOrderStatusRequired
	}
	return trimmed, nil
}

// ActivityEntry - запись append-only журнала действий пользователя.
type ActivityEntry struct {
	ID     string
	UserID int64
	Action string
	Time   time.Time
}
