package datastore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/messaging/kafka"
)

// UpsertCountryStock создаёт или полностью заменяет позицию каталога по коду.
// Диапазон stock и price не проверяется.
func (s *Store) UpsertCountryStock(ctx context.Context, country, code string, stock int64, price decimal.Decimal) error {
	var entry domain.StockEntry
	err := s.observe(ctx, "stock.upsert", func(ctx context.Context) error {
		normalized, err := domain.NormalizeStockCode(code)
		if err != nil {
			return err
		}
		entry = domain.StockEntry{
			Code:      normalized,
			Country:   country,
			Stock:     stock,
			Price:     price,
			UpdatedAt: s.now().UTC(),
		}
		return s.stock.Upsert(ctx, entry)
	})
	if err != nil {
		return err
	}

	event := kafka.NewStockUpsertedEvent(entry)
	s.publish(kafka.TopicStockEvents, event.Key(), event)
	return nil
}

// ListCountriesSorted возвращает каталог: stock DESC, country ASC, code ASC.
// Результат обрезается до domain.MaxSortedCountries записей; хвост каталога
// доступен только постранично.
func (s *Store) ListCountriesSorted(ctx context.Context) ([]domain.StockEntry, error) {
	return run(ctx, s, "stock.list_sorted", func(ctx context.Context) ([]domain.StockEntry, error) {
		return s.stock.List(ctx, 0, domain.MaxSortedCountries)
	})
}

// ListCountriesPage возвращает страницу page (с 1) по domain.CountriesPerPage записей.
// Страница за пределами каталога пустая; page < 1 - domain.ErrPageOutOfRange.
func (s *Store) ListCountriesPage(ctx context.Context, page int) ([]domain.StockEntry, error) {
	return run(ctx, s, "stock.list_page", func(ctx context.Context) ([]domain.StockEntry, error) {
		offset, err := domain.PageOffset(page, domain.CountriesPerPage)
		if err != nil {
			return nil, err
		}
		return s.stock.List(ctx, offset, domain.CountriesPerPage)
	})
}

// CountCountryPages возвращает число страниц каталога; 0 для пустого.
func (s *Store) CountCountryPages(ctx context.Context) (int, error) {
	return run(ctx, s, "stock.count_pages", func(ctx context.Context) (int, error) {
		total, err := s.stock.Count(ctx)
		if err != nil {
			return 0, err
		}
		return domain.PageCount(total, domain.CountriesPerPage), nil
	})
}

// CountCountries возвращает число позиций каталога.
func (s *Store) CountCountries(ctx context.Context) (int64, error) {
	return run(ctx, s, "stock.count", s.stock.Count)
}

// GetCountryStock возвращает позицию каталога или domain.ErrStockNotFound.
func (s *Store) GetCountryStock(ctx context.Context, code string) (domain.StockEntry, error) {
	return run(ctx, s, "stock.get", func(ctx context.Context) (domain.StockEntry, error) {
		normalized, err := domain.NormalizeStockCode(code)
		if err != nil {
			return domain.StockEntry{}, err
		}
		return s.stock.Get(ctx, normalized)
	})
}

// ReduceCountryStock списывает qty, только если остатка хватает.
// Applied=false без ошибки, если остатка мало или кода нет в каталоге.
func (s *Store) ReduceCountryStock(ctx context.Context, code string, qty int64) (domain.UpdateResult, error) {
	var normalized string
	res, err := run(ctx, s, "stock.reduce", func(ctx context.Context) (domain.UpdateResult, error) {
		var err error
		normalized, err = domain.NormalizeStockCode(code)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		if err := domain.ValidateReduceQty(qty); err != nil {
			return domain.UpdateResult{}, err
		}
		return s.stock.Reduce(ctx, normalized, qty)
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}

	s.metrics.RecordGuardedUpdate("stock.reduce", res.Applied)
	if res.Applied {
		event := kafka.NewStockReducedEvent(normalized, qty, s.now().UTC())
		s.publish(kafka.TopicStockEvents, event.Key(), event)
	}
	return res, nil
}
