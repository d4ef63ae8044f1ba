package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/smmstore/internal/datastore"
	"github.com/vladislavdragonenkov/smmstore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/smmstore/internal/metrics"
	"github.com/vladislavdragonenkov/smmstore/internal/storage/memory"
	mongostore "github.com/vladislavdragonenkov/smmstore/internal/storage/mongo"
	pgstore "github.com/vladislavdragonenkov/smmstore/internal/storage/postgres"
	"github.com/vladislavdragonenkov/smmstore/internal/tracing"
	"github.com/vladislavdragonenkov/smmstore/internal/version"
)

const serviceName = "smm-datastore"

// Dependencies содержит все зависимости процесса.
type Dependencies struct {
	Store    *datastore.Store
	Metrics  *metrics.StoreMetrics
	Producer *kafka.Producer
	Tracer   trace.TracerProvider
	Logger   *log.Entry

	shutdownTracing tracing.ShutdownFunc
}

// NewDependencies поднимает трейсинг, Kafka producer и хранилище выбранного драйвера.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	tp, shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	deps := &Dependencies{
		Metrics:         metrics.NewStoreMetrics(),
		Tracer:          tp,
		Logger:          logger,
		shutdownTracing: shutdownTracing,
	}

	// Без Kafka хранилище работает, события просто не публикуются.
	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil {
		deps.Producer = producer
	}

	opts := []datastore.Option{
		datastore.WithLogger(logger.WithField("component", "datastore")),
		datastore.WithMetrics(deps.Metrics),
		datastore.WithTracer(tp),
	}
	if deps.Producer != nil {
		opts = append(opts, datastore.WithEventPublisher(deps.Producer))
	}

	store, err := OpenDatastore(ctx, cfg, logger, opts...)
	if err != nil {
		closeKafka(deps.Producer, logger)
		_ = shutdownTracing(ctx)
		return nil, err
	}
	deps.Store = store

	return deps, nil
}

// Close закрывает хранилище, producer и экспорт трейсов.
func (d *Dependencies) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}

	var errs []error
	if d.Store != nil {
		if err := d.Store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	closeKafka(d.Producer, d.Logger)
	if d.shutdownTracing != nil {
		if err := d.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenDatastore собирает backend по cfg.StorageDriver и оборачивает его в datastore.Store.
func OpenDatastore(ctx context.Context, cfg Config, logger *log.Entry, opts ...datastore.Option) (*datastore.Store, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := datastore.New(backend, opts...)
	if err != nil {
		if backend.Close != nil {
			_ = backend.Close(ctx)
		}
		return nil, err
	}

	logger.WithField("driver", backend.Name).Info("datastore opened")
	return store, nil
}

func openBackend(ctx context.Context, cfg Config, logger *log.Entry) (datastore.Backend, error) {
	retry := DefaultRetryConfig()
	if cfg.ConnectAttempts > 0 {
		retry.MaxAttempts = cfg.ConnectAttempts
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		users := memory.NewUserRepository()
		return datastore.Backend{
			Name:     StorageDriverMemory,
			Users:    users,
			Orders:   memory.NewOrderRepository(users),
			Activity: memory.NewActivityRepository(),
			Stock:    memory.NewStockRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return datastore.Backend{}, errors.New("postgres DSN is not set")
		}

		var pg *pgstore.Store
		err := withRetry(ctx, retry, logger, "postgres.open", func(ctx context.Context) error {
			store, openErr := pgstore.Open(ctx, cfg.PostgresDSN)
			if openErr != nil {
				return openErr
			}
			pg = store
			return nil
		})
		if err != nil {
			return datastore.Backend{}, err
		}

		if cfg.PostgresEnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return datastore.Backend{}, fmt.Errorf("ensure postgres schema: %w", err)
			}
		}

		return datastore.Backend{
			Name:     StorageDriverPostgres,
			Users:    pgstore.NewUserRepository(pg),
			Orders:   pgstore.NewOrderRepository(pg),
			Activity: pgstore.NewActivityRepository(pg),
			Stock:    pgstore.NewStockRepository(pg),
			Ping:     pg.Ping,
			Close: func(context.Context) error {
				return pg.Close()
			},
		}, nil

	case StorageDriverMongo:
		if cfg.MongoURI == "" {
			return datastore.Backend{}, errors.New("mongo URI is not set")
		}

		var mg *mongostore.Store
		err := withRetry(ctx, retry, logger, "mongo.open", func(ctx context.Context) error {
			store, openErr := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if openErr != nil {
				return openErr
			}
			mg = store
			return nil
		})
		if err != nil {
			return datastore.Backend{}, err
		}

		if err := mg.EnsureIndexes(ctx); err != nil {
			_ = mg.Close(ctx)
			return datastore.Backend{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}

		return datastore.Backend{
			Name:     StorageDriverMongo,
			Users:    mongostore.NewUserRepository(mg),
			Orders:   mongostore.NewOrderRepository(mg),
			Activity: mongostore.NewActivityRepository(mg),
			Stock:    mongostore.NewStockRepository(mg),
			Ping:     mg.Ping,
			Close:    mg.Close,
			NewID:    mongostore.NewID,
		}, nil

	default:
		return datastore.Backend{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
