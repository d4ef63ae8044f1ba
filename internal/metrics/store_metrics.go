package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для метки result.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	// ResultClosed - вызов после Close хранилища; это не сбой backend'а.
	ResultClosed   = "closed"
)

// StoreMetrics содержит метрики слоя доступа к данным.
// Методы безопасно вызывать на nil: метрики тогда просто не пишутся.
type StoreMetrics struct {
	// Операции хранилища по имени и результату
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Условные обновления: applied / noop
	guardedUpdates *prometheus.CounterVec

	// Публикация событий
	eventsPublished *prometheus.CounterVec

	// Снимки размеров коллекций от stats collector
	usersTotal     prometheus.Gauge
	ordersTotal    prometheus.Gauge
	countriesTotal prometheus.Gauge
	countryPages   prometheus.Gauge
}

// NewStoreMetrics создаёт метрики в DefaultRegisterer.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer создаёт метрики в указанном registerer
// (повторная регистрация возвращает уже существующие коллекторы).
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "smm_store_operations_total",
			Help: "Total number of datastore operations by result",
		}, []string{"operation", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "smm_store_operation_duration_seconds",
			Help:    "Duration of datastore operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		guardedUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "smm_store_guarded_updates_total",
			Help: "Conditional updates by outcome (applied or noop)",
		}, []string{"operation", "outcome"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "smm_store_events_published_total",
			Help: "Total number of change events handed to the publisher",
		}, []string{"topic", "result"}),
		usersTotal: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "smm_users_total",
			Help: "Number of stored users",
		}),
		ordersTotal: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "smm_orders_total",
			Help: "Number of stored orders",
		}),
		countriesTotal: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "smm_stock_countries_total",
			Help: "Number of entries in the country stock catalog",
		}),
		countryPages: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "smm_stock_country_pages",
			Help: "Number of catalog pages shown to bot users",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOperation учитывает завершённую операцию хранилища.
func (m *StoreMetrics) RecordOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGuardedUpdate учитывает исход условного обновления.
func (m *StoreMetrics) RecordGuardedUpdate(operation string, applied bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if applied {
		outcome = "applied"
	}
	m.guardedUpdates.WithLabelValues(operation, outcome).Inc()
}

// RecordEventPublished учитывает попытку публикации события.
func (m *StoreMetrics) RecordEventPublished(topic string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.eventsPublished.WithLabelValues(topic, result).Inc()
}

// SetTotals обновляет gauge'и размеров коллекций.
func (m *StoreMetrics) SetTotals(users, orders, countries int64, pages int) {
	if m == nil {
		return
	}
	m.usersTotal.Set(float64(users))
	m.ordersTotal.Set(float64(orders))
	m.countriesTotal.Set(float64(countries))
	m.countryPages.Set(float64(pages))
}
