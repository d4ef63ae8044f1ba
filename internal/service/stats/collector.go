package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/metrics"
)

const defaultCollectInterval = time.Minute

var statsCollectRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "smm_stats_collect_runs_total",
	Help: "Total number of stats collection runs grouped by result.",
}, []string{"result"})

// Source - счётчики хранилища, которые снимает коллектор (реализует *datastore.Store).
type Source interface {
	CountUsers(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	CountCountries(ctx context.Context) (int64, error)
}

// Snapshot - снимок размеров коллекций.
type Snapshot struct {
	Users     int64 `json:"users"`
	Orders    int64 `json:"orders"`
	Countries int64 `json:"countries"`
	Pages     int   `json:"country_pages"`
}

// CollectorOptions задает параметры коллектора.
type CollectorOptions struct {
	Logger   *log.Entry
	Interval time.Duration
	Metrics  *metrics.StoreMetrics
}

// CollectorOption настраивает Collector.
type CollectorOption func(*CollectorOptions)

// WithLogger задает logger для коллектора.
func WithLogger(logger *log.Entry) CollectorOption {
	return func(opts *CollectorOptions) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между снимками.
func WithInterval(interval time.Duration) CollectorOption {
	return func(opts *CollectorOptions) {
		opts.Interval = interval
	}
}

// WithMetrics задает метрики, в которые пишутся снимки.
func WithMetrics(m *metrics.StoreMetrics) CollectorOption {
	return func(opts *CollectorOptions) {
		opts.Metrics = m
	}
}

// Collector периодически снимает счётчики пользователей, заказов и каталога.
type Collector struct {
	source   Source
	logger   *log.Entry
	interval time.Duration
	metrics  *metrics.StoreMetrics
}

// NewCollector создает коллектор статистики.
func NewCollector(source Source, options ...CollectorOption) *Collector {
	opts := CollectorOptions{Interval: defaultCollectInterval}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "stats-collector")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultCollectInterval
	}

	return &Collector{
		source:   source,
		logger:   logger,
		interval: opts.Interval,
		metrics:  opts.Metrics,
	}
}

// Run снимает статистику сразу и затем по тикеру до отмены ctx.
func (c *Collector) Run(ctx context.Context) {
	if c.source == nil {
		c.logger.Warn("stats collector is disabled: source is nil")
		return
	}

	c.collectOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collectOnce(ctx)
		}
	}
}

func (c *Collector) collectOnce(ctx context.Context) {
	snapshot, err := c.Collect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStoreClosed) {
			return
		}
		statsCollectRunsTotal.WithLabelValues("error").Inc()
		c.logger.WithError(err).Warn("stats collection failed")
		return
	}

	statsCollectRunsTotal.WithLabelValues("ok").Inc()
	c.metrics.SetTotals(snapshot.Users, snapshot.Orders, snapshot.Countries, snapshot.Pages)
	c.logger.WithFields(log.Fields{
		"users":     snapshot.Users,
		"orders":    snapshot.Orders,
		"countries": snapshot.Countries,
	}).Debug("stats collected")
}

// Collect снимает один снимок.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	users, err := c.source.CountUsers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count users: %w", err)
	}
	orders, err := c.source.CountOrders(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count orders: %w", err)
	}
	countries, err := c.source.CountCountries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count countries: %w", err)
	}

	return Snapshot{
		Users:     users,
		Orders:    orders,
		Countries: countries,
		Pages:     domain.PageCount(countries, domain.CountriesPerPage),
	}, nil
}
