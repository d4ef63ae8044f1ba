package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

var errDuplicateOrder = errors.New("order with this id already exists")

// newestFirst - порядок выдачи заказов и журнала: time DESC, затем _id DESC.
var newestFirst = bson.D{{Key: "time", Value: -1}, {Key: "_id", Value: -1}}

type orderDocument struct {
	ID         bson.RawValue `bson:"_id"`
	UserID     int64         `bson:"user_id"`
	ServiceID  int64         `bson:"service_id"`
	Link       string        `bson:"link"`
	Quantity   int64         `bson:"quantity"`
	Amount     bson.RawValue `bson:"amount"`
	APIOrderID int64         `bson:"api_order_id"`
	Status     string        `bson:"status"`
	Time       time.Time     `bson:"time"`
}

func (d orderDocument) toDomain() (domain.Order, error) {
	amount, err := decimalFromRaw(d.Amount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decode order amount: %w", err)
	}
	return domain.Order{
		ID:         idFromRaw(d.ID),
		UserID:     d.UserID,
		ServiceID:  d.ServiceID,
		Link:       d.Link,
		Quantity:   d.Quantity,
		Amount:     amount,
		APIOrderID: d.APIOrderID,
		Status:     domain.OrderStatus(d.Status),
		CreatedAt:  d.Time.UTC(),
	}, nil
}

type orderRepository struct {
	orders *mongo.Collection
	users  *mongo.Collection
}

// NewOrderRepository создаёт MongoDB-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{
		orders: store.collection(ordersCollection),
		users:  store.collection(usersCollection),
	}
}

// Create - две независимые записи: вставка заказа и $inc счётчика владельца.
// Без replica set транзакции недоступны, поэтому счётчик может отстать при сбое второй записи.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	amount, err := decimalToBSON(order.Amount)
	if err != nil {
		return err
	}

	_, err = r.orders.InsertOne(ctx, bson.M{
		"_id":          idToBSON(order.ID),
		"user_id":      order.UserID,
		"service_id":   order.ServiceID,
		"link":         order.Link,
		"quantity":     order.Quantity,
		"amount":       amount,
		"api_order_id": order.APIOrderID,
		"status":       string(order.Status),
		"time":         order.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", errDuplicateOrder, order.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if _, err := r.users.UpdateOne(ctx, bson.M{"_id": order.UserID}, bson.M{"$inc": bson.M{"orders": 1}}); err != nil {
		return fmt.Errorf("increment user orders: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, apiOrderID int64, status domain.OrderStatus) (domain.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.orders.FindOneAndUpdate(ctx,
		bson.M{"api_order_id": apiOrderID},
		bson.M{"$set": bson.M{"status": string(status)}},
		options.FindOneAndUpdate().SetSort(newestFirst).SetProjection(bson.M{"_id": 1}),
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.UpdateResult{}, nil
		}
		return domain.UpdateResult{}, fmt.Errorf("update order status: %w", err)
	}
	return domain.UpdateResult{Applied: true}, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.orders.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		order, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) GetByAPIID(ctx context.Context, apiOrderID int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc orderDocument
	err := r.orders.FindOne(ctx,
		bson.M{"api_order_id": apiOrderID},
		options.FindOne().SetSort(newestFirst),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return doc.toDomain()
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := r.orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
