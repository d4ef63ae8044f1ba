package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

// userDocument - документ коллекции users. balance читается сырым значением,
// потому что его тип зависит от того, кто писал документ.
type userDocument struct {
	ID         int64         `bson:"_id"`
	Name       string        `bson:"name"`
	Balance    bson.RawValue `bson:"balance"`
	Orders     int64         `bson:"orders"`
	ReferredBy *int64        `bson:"referred_by"`
	Refs       int64         `bson:"refs"`
	LastBonus  *time.Time    `bson:"last_bonus"`
}

func (d userDocument) toDomain() (domain.User, error) {
	balance, err := decimalFromRaw(d.Balance)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode balance of user %d: %w", d.ID, err)
	}
	user := domain.User{
		ID:         d.ID,
		Name:       d.Name,
		Balance:    balance,
		Orders:     d.Orders,
		ReferredBy: d.ReferredBy,
		Refs:       d.Refs,
	}
	if d.LastBonus != nil {
		at := d.LastBonus.UTC()
		user.LastBonus = &at
	}
	return user, nil
}

type userRepository struct {
	users *mongo.Collection
}

// NewUserRepository создаёт MongoDB-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{users: store.collection(usersCollection)}
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := r.users.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user domain.User) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	balance, err := decimalToBSON(user.Balance)
	if err != nil {
		return false, err
	}

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$setOnInsert": bson.M{
			"name":        user.Name,
			"balance":     balance,
			"orders":      user.Orders,
			"referred_by": user.ReferredBy,
			"refs":        user.Refs,
			"last_bonus":  user.LastBonus,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc userDocument
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain()
}

// AddBalance делает $inc с upsert; остальные поля нового документа
// заполняются дефолтами через $setOnInsert.
func (r *userRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	inc, err := decimalToBSON(amount)
	if err != nil {
		return err
	}

	defaults := userDefaults(id)
	delete(defaults, "balance")

	if _, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc":         bson.M{"balance": inc},
			"$setOnInsert": defaults,
		},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	return nil
}

func (r *userRepository) Balance(ctx context.Context, id int64) (decimal.Decimal, error) {
	doc, found, err := r.findProjected(ctx, id, bson.M{"balance": 1})
	if err != nil || !found {
		return decimal.Zero, err
	}
	balance, err := decimalFromRaw(doc.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode balance of user %d: %w", id, err)
	}
	return balance, nil
}

func (r *userRepository) IncrementRefs(ctx context.Context, id int64) (domain.UpdateResult, error) {
	return r.increment(ctx, "refs", id)
}

func (r *userRepository) Refs(ctx context.Context, id int64) (int64, error) {
	doc, found, err := r.findProjected(ctx, id, bson.M{"refs": 1})
	if err != nil || !found {
		return 0, err
	}
	return doc.Refs, nil
}

func (r *userRepository) IncrementOrders(ctx context.Context, id int64) (domain.UpdateResult, error) {
	return r.increment(ctx, "orders", id)
}

func (r *userRepository) LastBonus(ctx context.Context, id int64) (*time.Time, error) {
	doc, found, err := r.findProjected(ctx, id, bson.M{"last_bonus": 1})
	if err != nil || !found || doc.LastBonus == nil {
		return nil, err
	}
	at := doc.LastBonus.UTC()
	return &at, nil
}

func (r *userRepository) SetLastBonus(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	defaults := userDefaults(id)
	delete(defaults, "last_bonus")

	if _, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":         bson.M{"last_bonus": at},
			"$setOnInsert": defaults,
		},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("set last bonus: %w", err)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := r.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) increment(ctx context.Context, field string, id int64) (domain.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("increment %s: %w", field, err)
	}
	return domain.UpdateResult{Applied: res.MatchedCount > 0}, nil
}

func (r *userRepository) findProjected(ctx context.Context, id int64, projection bson.M) (userDocument, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(projection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return userDocument{}, false, nil
		}
		return userDocument{}, false, fmt.Errorf("find user: %w", err)
	}
	return doc, true, nil
}

// userDefaults - поля нового пользователя для $setOnInsert (без _id: его задаёт фильтр).
func userDefaults(id int64) bson.M {
	zero, _ := primitive.ParseDecimal128("0")
	user := domain.NewUser(id, "", nil)
	return bson.M{
		"name":        user.Name,
		"balance":     zero,
		"orders":      user.Orders,
		"referred_by": user.ReferredBy,
		"refs":        user.Refs,
		"last_bonus":  user.LastBonus,
	}
}

var _ domain.UserRepository = (*userRepository)(nil)
