package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultConnTimeout = 5 * time.Second

	opTimeout = 5 * time.Second

	// Имена коллекций совместимы с уже работающим ботом.
	usersCollection    = "users"
	ordersCollection   = "orders"
	activityCollection = "activity"
	stockCollection    = "tg_account_stock"
)

var errStoreNotInitialized = errors.New("mongo store is not initialized")

// Store владеет клиентом MongoDB и базой данных бота.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open подключается к MongoDB и проверяет доступность primary.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	if strings.TrimSpace(dbName) == "" {
		return nil, errors.New("mongo database name is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(defaultConnTimeout)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Ping проверяет доступность primary.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.client.Ping(pingCtx, readpref.Primary())
}

// Close отключает клиента.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes создаёт индексы под запросы репозиториев. Повторный вызов безопасен.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	specs := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "api_order_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}},
		},
		activityCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}},
		},
		stockCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "stock", Value: -1}, {Key: "country", Value: 1}, {Key: "code", Value: 1}}},
		},
	}

	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// NewID возвращает hex ObjectID: так выглядят идентификаторы заказов и журнала в боте.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}
