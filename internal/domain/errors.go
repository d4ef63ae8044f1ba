package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument - базовая ошибка некорректных входных параметров.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPageOutOfRange возвращается для номера страницы < 1.
	ErrPageOutOfRange = fmt.Errorf("%w: page must be greater than zero", ErrInvalidArgument)
	// ErrStockCodeRequired - пустой код страны в каталоге.
	ErrStockCodeRequired = fmt.Errorf("%w: stock code is required", ErrInvalidArgument)
	// ErrStockQtyInvalid - количество для списания должно быть > 0.
	ErrStockQtyInvalid = fmt.Errorf("%w: stock qty must be greater than zero", ErrInvalidArgument)
	// ErrOrderStatusRequired - пустой статус при обновлении заказа.
	ErrOrderStatusRequired = fmt.Errorf("%w: order status is required", ErrInvalidArgument)

	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStockNotFound возвращается, если позиции каталога с таким кодом нет.
	ErrStockNotFound = errors.New("stock entry not found")
	// ErrStoreClosed - операция вызвана после Close.
	ErrStoreClosed = errors.New("datastore is closed")
)

// StorageError оборачивает отказ хранилища (недоступность, сетевые и прочие I/O ошибки).
// Исходная ошибка драйвера доступна через errors.As / errors.Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s failed", e.Op)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError создаёт StorageError для операции op.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError проверяет, является ли ошибка отказом хранилища.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// IsNotFound проверяет все not-found ошибки домена.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrStockNotFound)
}

// IsDomainError сообщает, что ошибка порождена доменом, а не хранилищем.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrStoreClosed) ||
		IsNotFound(err)
}
