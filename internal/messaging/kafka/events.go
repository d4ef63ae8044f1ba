package kafka

import (
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"

	// Activity события
	EventTypeActivityLogged EventType = "activity.logged"

	// Stock события
	EventTypeStockUpserted EventType = "stock.upserted"
	EventTypeStockReduced  EventType = "stock.reduced"
)

// Topics для Kafka
const (
	TopicOrderEvents    = "smm.order.events"
	TopicActivityEvents = "smm.activity.events"
	TopicStockEvents    = "smm.stock.events"
)

// OrderEvent представляет событие заказа.
// Для order.status_changed известен только внешний идентификатор, OrderID пустой.
type OrderEvent struct {
	EventType  EventType `json:"event_type"`
	OrderID    string    `json:"order_id,omitempty"`
	APIOrderID int64     `json:"api_order_id"`
	UserID     int64     `json:"user_id,omitempty"`
	ServiceID  int64     `json:"service_id,omitempty"`
	Quantity   int64     `json:"quantity,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key - ключ партиционирования: все события одного внешнего заказа попадают в одну партицию.
func (e *OrderEvent) Key() string {
	return strconv.FormatInt(e.APIOrderID, 10)
}

// ActivityEvent представляет запись журнала действий
type ActivityEvent struct {
	EventType EventType `json:"event_type"`
	EntryID   string    `json:"entry_id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Key возвращает id пользователя.
func (e *ActivityEvent) Key() string {
	return strconv.FormatInt(e.UserID, 10)
}

// StockEvent представляет изменение каталога остатков
type StockEvent struct {
	EventType EventType `json:"event_type"`
	Code      string    `json:"code"`
	Country   string    `json:"country,omitempty"`
	Stock     int64     `json:"stock,omitempty"`
	Price     string    `json:"price,omitempty"`
	Qty       int64     `json:"qty,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key возвращает код страны.
func (e *StockEvent) Key() string {
	return e.Code
}

// NewOrderCreatedEvent создает событие о новом заказе
func NewOrderCreatedEvent(order domain.Order) *OrderEvent {
	return &OrderEvent{
		EventType:  EventTypeOrderCreated,
		OrderID:    order.ID,
		APIOrderID: order.APIOrderID,
		UserID:     order.UserID,
		ServiceID:  order.ServiceID,
		Quantity:   order.Quantity,
		Amount:     order.Amount.String(),
		Status:     string(order.Status),
		Timestamp:  order.CreatedAt,
	}
}

// NewOrderStatusChangedEvent создает событие смены статуса
func NewOrderStatusChangedEvent(apiOrderID int64, status domain.OrderStatus, at time.Time) *OrderEvent {
	return &OrderEvent{
		EventType:  EventTypeOrderStatusChanged,
		APIOrderID: apiOrderID,
		Status:     string(status),
		Timestamp:  at,
	}
}

// NewActivityLoggedEvent создает событие журнала
func NewActivityLoggedEvent(entry domain.ActivityEntry) *ActivityEvent {
	return &ActivityEvent{
		EventType: EventTypeActivityLogged,
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Timestamp: entry.Time,
	}
}

// NewStockUpsertedEvent создает событие замены позиции каталога
func NewStockUpsertedEvent(entry domain.StockEntry) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockUpserted,
		Code:      entry.Code,
		Country:   entry.Country,
		Stock:     entry.Stock,
		Price:     entry.Price.String(),
		Timestamp: entry.UpdatedAt,
	}
}

// NewStockReducedEvent создает событие успешного списания
func NewStockReducedEvent(code string, qty int64, at time.Time) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockReduced,
		Code:      code,
		Qty:       qty,
		Timestamp: at,
	}
}
