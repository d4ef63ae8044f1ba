package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

type stockRepository struct {
	db *sql.DB
}

// NewStockRepository создаёт PostgreSQL-реализацию StockRepository.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepository{db: store.DB()}
}

func (r *stockRepository) Upsert(ctx context.Context, entry domain.StockEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO country_stock (code, country, stock, price, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (code) DO UPDATE
		SET country = EXCLUDED.country,
		    stock = EXCLUDED.stock,
		    price = EXCLUDED.price,
		    updated_at = EXCLUDED.updated_at
	`, entry.Code, entry.Country, entry.Stock, entry.Price, entry.UpdatedAt); err != nil {
		return fmt.Errorf("upsert country stock: %w", err)
	}
	return nil
}

func (r *stockRepository) Get(ctx context.Context, code string) (domain.StockEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var entry domain.StockEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT code, country, stock, price, updated_at
		FROM country_stock
		WHERE code = $1
	`, code).Scan(&entry.Code, &entry.Country, &entry.Stock, &entry.Price, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockEntry{}, domain.ErrStockNotFound
		}
		return domain.StockEntry{}, fmt.Errorf("select country stock: %w", err)
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

// stockListOrder - порядок каталога. COLLATE "C" сравнивает строки побайтно,
// как domain.StockLess, независимо от локали базы.
const stockListOrder = `stock DESC, country COLLATE "C" ASC, code COLLATE "C" ASC`

// List отдаёт страницу каталога; code в ORDER BY делает порядок детерминированным.
func (r *stockRepository) List(ctx context.Context, offset, limit int) ([]domain.StockEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.MaxSortedCountries
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, country, stock, price, updated_at
		FROM country_stock
		ORDER BY `+stockListOrder+`
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list country stock: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.StockEntry, 0, limit)
	for rows.Next() {
		var entry domain.StockEntry
		if err := rows.Scan(&entry.Code, &entry.Country, &entry.Stock, &entry.Price, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan country stock row: %w", err)
		}
		entry.UpdatedAt = entry.UpdatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate country stock rows: %w", err)
	}

	return entries, nil
}

func (r *stockRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "country_stock")
}

// Reduce - условное обновление: строка меняется, только если остатка хватает.
func (r *stockRepository) Reduce(ctx context.Context, code string, qty int64) (domain.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE country_stock
		SET stock = stock - $2
		WHERE code = $1
		  AND stock >= $2
	`, code, qty)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("reduce country stock: %w", err)
	}
	return updateResult(res)
}

var _ domain.StockRepository = (*stockRepository)(nil)
