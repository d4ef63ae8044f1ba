package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

type activityRepository struct {
	db *sql.DB
}

// NewActivityRepository создаёт PostgreSQL-реализацию ActivityRepository.
func NewActivityRepository(store *Store) domain.ActivityRepository {
	return &activityRepository{db: store.DB()}
}

func (r *activityRepository) Append(ctx context.Context, entry domain.ActivityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, user_id, action, occurred_at)
		VALUES ($1,$2,$3,$4)
	`, entry.ID, entry.UserID, entry.Action, entry.Time); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, action, occurred_at
		FROM activity_log
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Time); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		entry.Time = entry.Time.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return entries, nil
}

var _ domain.ActivityRepository = (*activityRepository)(nil)
