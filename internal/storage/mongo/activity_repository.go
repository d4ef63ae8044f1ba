package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

type activityDocument struct {
	ID     bson.RawValue `bson:"_id"`
	UserID int64         `bson:"user_id"`
	Action string        `bson:"action"`
	Time   time.Time     `bson:"time"`
}

type activityRepository struct {
	activity *mongo.Collection
}

// NewActivityRepository создаёт MongoDB-реализацию ActivityRepository.
func NewActivityRepository(store *Store) domain.ActivityRepository {
	return &activityRepository{activity: store.collection(activityCollection)}
}

func (r *activityRepository) Append(ctx context.Context, entry domain.ActivityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.activity.InsertOne(ctx, bson.M{
		"_id":     idToBSON(entry.ID),
		"user_id": entry.UserID,
		"action":  entry.Action,
		"time":    entry.Time,
	}); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.activity.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]domain.ActivityEntry, 0)
	for cursor.Next(ctx) {
		var doc activityDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		entries = append(entries, domain.ActivityEntry{
			ID:     idFromRaw(doc.ID),
			UserID: doc.UserID,
			Action: doc.Action,
			Time:   doc.Time.UTC(),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

var _ domain.ActivityRepository = (*activityRepository)(nil)
