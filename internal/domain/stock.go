package domain

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CountriesPerPage - размер страницы каталога.
	CountriesPerPage = 12
	// MaxSortedCountries - жёсткий лимит полного списка каталога.
	MaxSortedCountries = 1000
)

// StockEntry - остаток аккаунтов по стране.
type StockEntry struct {
	Code      string
	Country   string
	Stock     int64
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// NormalizeStockCode обрезает пробелы вокруг кода страны и проверяет, что он задан.
func NormalizeStockCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrStockCodeRequired
	}
	return code, nil
}

// ValidateReduceQty проверяет количество для списания.
func ValidateReduceQty(qty int64) error {
	if qty <= 0 {
		return ErrStockQtyInvalid
	}
	return nil
}

// PageOffset переводит номер страницы (с 1) в смещение выборки.
// Для страниц, чьё смещение не помещается в int, возвращается math.MaxInt:
// такая страница заведомо за концом каталога и выборка по ней пустая.
func PageOffset(page, perPage int) (int, error) {
	if page < 1 {
		return 0, ErrPageOutOfRange
	}
	if perPage <= 0 {
		perPage = CountriesPerPage
	}
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt, nil
	}
	return (page - 1) * perPage, nil
}

// PageCount возвращает ceil(total/perPage); для пустого каталога - 0.
func PageCount(total int64, perPage int) int {
	if total <= 0 {
		return 0
	}
	if perPage <= 0 {
		perPage = CountriesPerPage
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// StockLess задаёт порядок каталога: stock DESC, country ASC, code ASC.
func StockLess(a, b StockEntry) bool {
	if a.Stock != b.Stock {
		return a.Stock > b.Stock
	}
	if a.Country != b.Country {
		return a.Country < b.Country
	}
	return a.Code < b.Code
}

// SortStockEntries сортирует записи каталога на месте.
func SortStockEntries(entries []StockEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return StockLess(entries[i], entries[j])
	})
}
