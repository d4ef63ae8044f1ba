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

var stockOrder = bson.D{
	{Key: "stock", Value: -1},
	{Key: "country", Value: 1},
	{Key: "code", Value: 1},
}

type stockDocument struct {
	Code      string        `bson:"code"`
	Country   string        `bson:"country"`
	Stock     int64         `bson:"stock"`
	Price     bson.RawValue `bson:"price"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d stockDocument) toDomain() (domain.StockEntry, error) {
	price, err := decimalFromRaw(d.Price)
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("decode price of %s: %w", d.Code, err)
	}
	return domain.StockEntry{
		Code:      d.Code,
		Country:   d.Country,
		Stock:     d.Stock,
		Price:     price,
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

type stockRepository struct {
	stock *mongo.Collection
}

// NewStockRepository создаёт MongoDB-реализацию StockRepository.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepository{stock: store.collection(stockCollection)}
}

func (r *stockRepository) Upsert(ctx context.Context, entry domain.StockEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	price, err := decimalToBSON(entry.Price)
	if err != nil {
		return err
	}

	if _, err := r.stock.UpdateOne(ctx,
		bson.M{"code": entry.Code},
		bson.M{"$set": bson.M{
			"country":    entry.Country,
			"code":       entry.Code,
			"stock":      entry.Stock,
			"price":      price,
			"updated_at": entry.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("upsert country stock: %w", err)
	}
	return nil
}

func (r *stockRepository) Get(ctx context.Context, code string) (domain.StockEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc stockDocument
	if err := r.stock.FindOne(ctx, bson.M{"code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.StockEntry{}, domain.ErrStockNotFound
		}
		return domain.StockEntry{}, fmt.Errorf("find country stock: %w", err)
	}
	return doc.toDomain()
}

func (r *stockRepository) List(ctx context.Context, offset, limit int) ([]domain.StockEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.MaxSortedCountries
	}

	opts := options.Find().
		SetSort(stockOrder).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.stock.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find country stock: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]domain.StockEntry, 0, limit)
	for cursor.Next(ctx) {
		var doc stockDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode country stock: %w", err)
		}
		entry, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate country stock: %w", err)
	}
	return entries, nil
}

func (r *stockRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := r.stock.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count country stock: %w", err)
	}
	return count, nil
}

// Reduce - условный $inc: фильтр stock >= qty проверяется атомарно вместе с обновлением.
func (r *stockRepository) Reduce(ctx context.Context, code string, qty int64) (domain.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.stock.UpdateOne(ctx,
		bson.M{"code": code, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("reduce country stock: %w", err)
	}
	return domain.UpdateResult{Applied: res.MatchedCount > 0}, nil
}

var _ domain.StockRepository = (*stockRepository)(nil)
