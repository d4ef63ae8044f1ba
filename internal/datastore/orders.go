package datastore

import (
	"context"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/messaging/kafka"
)

// CreateOrder сохраняет заказ в статусе pending и увеличивает счётчик заказов
// владельца. Атомарность двух записей зависит от backend'а: PostgreSQL делает
// их в одной транзакции, MongoDB двумя независимыми обновлениями.
func (s *Store) CreateOrder(ctx context.Context, in domain.NewOrder) (domain.Order, error) {
	order, err := run(ctx, s, "orders.create", func(ctx context.Context) (domain.Order, error) {
		order := in.Build(s.newID(), s.now().UTC())
		if err := s.orders.Create(ctx, order); err != nil {
			return domain.Order{}, err
		}
		return order, nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	event := kafka.NewOrderCreatedEvent(order)
	s.publish(kafka.TopicOrderEvents, event.Key(), event)
	return order, nil
}

// UpdateOrderStatus меняет статус заказа с данным api_order_id.
// Если заказов с этим id несколько, меняется самый новый; Applied=false, если совпадений нет.
func (s *Store) UpdateOrderStatus(ctx context.Context, apiOrderID int64, status domain.OrderStatus) (domain.UpdateResult, error) {
	var normalized domain.OrderStatus
	res, err := run(ctx, s, "orders.update_status", func(ctx context.Context) (domain.UpdateResult, error) {
		var err error
		normalized, err = domain.NormalizeStatus(status)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		return s.orders.UpdateStatus(ctx, apiOrderID, normalized)
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}

	s.metrics.RecordGuardedUpdate("orders.update_status", res.Applied)
	if res.Applied {
		event := kafka.NewOrderStatusChangedEvent(apiOrderID, normalized, s.now().UTC())
		s.publish(kafka.TopicOrderEvents, event.Key(), event)
	}
	return res, nil
}

// GetUserOrders возвращает все заказы пользователя, новые первыми. Размер не ограничен.
func (s *Store) GetUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return run(ctx, s, "orders.list_by_user", func(ctx context.Context) ([]domain.Order, error) {
		return s.orders.ListByUser(ctx, userID)
	})
}

// GetOrderByAPIID возвращает заказ по внешнему id или domain.ErrOrderNotFound.
func (s *Store) GetOrderByAPIID(ctx context.Context, apiOrderID int64) (domain.Order, error) {
	return run(ctx, s, "orders.get_by_api_id", func(ctx context.Context) (domain.Order, error) {
		return s.orders.GetByAPIID(ctx, apiOrderID)
	})
}
