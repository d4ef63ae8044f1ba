// Package datastore - слой доступа к данным бота: пользователи, балансы,
// рефералы, заказы, журнал действий и каталог остатков по странам.
//
// Store создаётся явно, передаётся вызывающему коду по указателю и закрывается
// через Close. Каждая операция принимает context.Context и выполняет один
// запрос к выбранному backend'у (две записи для CreateOrder).
package datastore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/metrics"
	"github.com/vladislavdragonenkov/smmstore/internal/tracing"
)

// Backend - набор репозиториев одного хранилища и его жизненный цикл.
type Backend struct {
	// Name попадает в логи и атрибут span'ов db.system.
	Name     string
	Users    domain.UserRepository
	Orders   domain.OrderRepository
	Activity domain.ActivityRepository
	Stock    domain.StockRepository

	// Ping проверяет доступность хранилища; nil - считается доступным.
	Ping func(ctx context.Context) error
	// Close освобождает подключение; nil - освобождать нечего.
	Close func(ctx context.Context) error
	// NewID генерирует id заказов и записей журнала; nil - UUIDv7.
	// id должны возрастать со временем: по ним разрешаются равные created_at.
	NewID func() string
}

// EventPublisher получает события об изменениях (см. internal/messaging/kafka).
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задаёт logger компонента.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics включает Prometheus-метрики операций.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer задаёт TracerProvider для span'ов операций.
func WithTracer(tp trace.TracerProvider) Option {
	return func(s *Store) {
		if tp != nil {
			s.tracer = tp.Tracer(tracing.TracerName)
		}
	}
}

// WithEventPublisher включает публикацию событий об изменениях.
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store - адаптер хранилища, через который бот выполняет все операции с данными.
type Store struct {
	backendName string
	users       domain.UserRepository
	orders      domain.OrderRepository
	activity    domain.ActivityRepository
	stock       domain.StockRepository
	ping        func(ctx context.Context) error
	closeFn     func(ctx context.Context) error
	newID       func() string

	logger    *log.Entry
	metrics   *metrics.StoreMetrics
	tracer    trace.Tracer
	publisher EventPublisher
	now       func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
}

// New собирает Store поверх backend'а.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend.Users == nil || backend.Orders == nil || backend.Activity == nil || backend.Stock == nil {
		return nil, errors.New("datastore backend must provide all repositories")
	}

	name := backend.Name
	if name == "" {
		name = "unknown"
	}

	s := &Store{
		backendName: name,
		users:       backend.Users,
		orders:      backend.Orders,
		activity:    backend.Activity,
		stock:       backend.Stock,
		ping:        backend.Ping,
		closeFn:     backend.Close,
		newID:       backend.NewID,
		logger:      log.WithField("component", "datastore"),
		tracer:      noop.NewTracerProvider().Tracer(tracing.TracerName),
		now:         time.Now,
	}
	if s.newID == nil {
		s.newID = newOrderedID
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("backend", name)

	return s, nil
}

// Ping проверяет доступность хранилища.
func (s *Store) Ping(ctx context.Context) error {
	return s.observe(ctx, "store.ping", func(ctx context.Context) error {
		if s.ping == nil {
			return nil
		}
		return s.ping(ctx)
	})
}

// Close закрывает backend. Повторные вызовы ничего не делают;
// любые операции после Close возвращают domain.ErrStoreClosed.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.closeFn != nil {
			err = s.closeFn(ctx)
		}
		if err != nil {
			s.logger.WithError(err).Warn("datastore backend close failed")
			err = domain.NewStorageError("store.close", err)
			return
		}
		s.logger.Info("datastore closed")
	})
	return err
}

// observe выполняет операцию op: span, метрики, логирование и
// перевод ошибок backend'а в *domain.StorageError.
func (s *Store) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.closed.Load() {
		s.metrics.RecordOperation(op, metrics.ResultClosed, 0)
		return domain.ErrStoreClosed
	}

	ctx, span := s.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.backendName),
			attribute.String("db.operation", op),
		),
	)
	defer span.End()

	start := time.Now()
	err := classify(op, fn(ctx))
	result := resultOf(err)
	s.metrics.RecordOperation(op, result, time.Since(start))

	if result == metrics.ResultError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithError(err).WithField("operation", op).Error("datastore operation failed")
	}
	return err
}

// run - observe для операций, возвращающих значение.
func run[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.observe(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// newOrderedID выдаёт UUIDv7: строки монотонно растут в пределах процесса.
func newOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// classify оставляет доменные ошибки как есть и оборачивает всё остальное.
func classify(op string, err error) error {
	if err == nil || domain.IsDomainError(err) || domain.IsStorageError(err) {
		return err
	}
	return domain.NewStorageError(op, err)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return metrics.ResultInvalid
	case errors.Is(err, domain.ErrStoreClosed):
		return metrics.ResultClosed
	default:
		return metrics.ResultError
	}
}

// publish отправляет событие, если publisher задан. Запись в хранилище уже
// выполнена, поэтому ошибка публикации только логируется.
func (s *Store) publish(topic, key string, event interface{}) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishEvent(topic, key, event)
	s.metrics.RecordEventPublished(topic, err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Warn("failed to publish datastore event")
	}
}
