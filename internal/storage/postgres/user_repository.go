package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{db: store.DB()}
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user domain.User) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, balance, orders, referred_by, refs, last_bonus)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`,
		user.ID, user.Name, user.Balance, user.Orders,
		nullInt64(user.ReferredBy), user.Refs, nullTime(user.LastBonus),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		user       domain.User
		referredBy sql.NullInt64
		lastBonus  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, balance, orders, referred_by, refs, last_bonus
		FROM users
		WHERE id = $1
	`, id).Scan(
		&user.ID, &user.Name, &user.Balance, &user.Orders,
		&referredBy, &user.Refs, &lastBonus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}

	if referredBy.Valid {
		ref := referredBy.Int64
		user.ReferredBy = &ref
	}
	if lastBonus.Valid {
		at := lastBonus.Time.UTC()
		user.LastBonus = &at
	}
	return user, nil
}

// AddBalance вставляет пользователя с дефолтами колонок или атомарно увеличивает баланс.
func (r *userRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = users.balance + EXCLUDED.balance
	`, id, amount); err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	return nil
}

func (r *userRepository) Balance(ctx context.Context, id int64) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

func (r *userRepository) IncrementRefs(ctx context.Context, id int64) (domain.UpdateResult, error) {
	return r.increment(ctx, "refs", id)
}

func (r *userRepository) Refs(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var refs int64
	err := r.db.QueryRowContext(ctx, `SELECT refs FROM users WHERE id = $1`, id).Scan(&refs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select refs: %w", err)
	}
	return refs, nil
}

func (r *userRepository) IncrementOrders(ctx context.Context, id int64) (domain.UpdateResult, error) {
	return r.increment(ctx, "orders", id)
}

func (r *userRepository) LastBonus(ctx context.Context, id int64) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var lastBonus sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT last_bonus FROM users WHERE id = $1`, id).Scan(&lastBonus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select last bonus: %w", err)
	}
	if !lastBonus.Valid {
		return nil, nil
	}
	at := lastBonus.Time.UTC()
	return &at, nil
}

func (r *userRepository) SetLastBonus(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, last_bonus)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_bonus = EXCLUDED.last_bonus
	`, id, at); err != nil {
		return fmt.Errorf("set last bonus: %w", err)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "users")
}

// increment атомарно увеличивает счётчик column; column - только из фиксированного набора.
func (r *userRepository) increment(ctx context.Context, column string, id int64) (domain.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var query string
	switch column {
	case "refs":
		query = `UPDATE users SET refs = refs + 1 WHERE id = $1`
	case "orders":
		query = `UPDATE users SET orders = orders + 1 WHERE id = $1`
	default:
		return domain.UpdateResult{}, fmt.Errorf("unsupported counter column %q", column)
	}

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("increment %s: %w", column, err)
	}
	return updateResult(res)
}

func updateResult(res sql.Result) (domain.UpdateResult, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("rows affected: %w", err)
	}
	return domain.UpdateResult{Applied: affected > 0}, nil
}

func countRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var query string
	switch table {
	case "users":
		query = `SELECT COUNT(*) FROM users`
	case "orders":
		query = `SELECT COUNT(*) FROM orders`
	case "country_stock":
		query = `SELECT COUNT(*) FROM country_stock`
	default:
		return 0, fmt.Errorf("unsupported table %q", table)
	}

	var count int64
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

var _ domain.UserRepository = (*userRepository)(nil)
