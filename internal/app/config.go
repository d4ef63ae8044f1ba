package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

// Config описывает настройки запуска; значения читаются из SMM_* переменных окружения
// поверх DefaultConfig.
type Config struct {
	StorageDriver        string `env:"SMM_STORAGE_DRIVER"`
	PostgresDSN          string `env:"SMM_POSTGRES_DSN"`
	PostgresEnsureSchema bool   `env:"SMM_POSTGRES_ENSURE_SCHEMA"`
	MongoURI             string `env:"SMM_MONGO_URI"`
	MongoDatabase        string `env:"SMM_MONGO_DB"`

	KafkaBrokers []string `env:"SMM_KAFKA_BROKERS" envSeparator:","`

	MetricsAddr   string        `env:"SMM_METRICS_ADDR"`
	StatsInterval time.Duration `env:"SMM_STATS_INTERVAL"`
	LogLevel      string        `env:"SMM_LOG_LEVEL"`

	OTLPEndpoint string `env:"SMM_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"SMM_OTLP_INSECURE"`

	// ConnectAttempts - число попыток подключиться к хранилищу при старте.
	ConnectAttempts int `env:"SMM_CONNECT_ATTEMPTS"`
}

// DefaultConfig возвращает конфигурацию in-memory хранилища с метриками на :9090.
func DefaultConfig() Config {
	return Config{
		StorageDriver:        StorageDriverMemory,
		PostgresEnsureSchema: true,
		MongoDatabase:        "smm",
		MetricsAddr:          ":9090",
		StatsInterval:        time.Minute,
		LogLevel:             "info",
		OTLPInsecure:         true,
		ConnectAttempts:      3,
	}
}

// LoadConfig читает конфигурацию из окружения процесса и валидирует её.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return normalize(cfg)
}

// LoadConfigFrom читает конфигурацию из переданного набора переменных.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return normalize(cfg)
}

func normalize(cfg Config) (Config, error) {
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	brokers := cfg.KafkaBrokers[:0]
	for _, broker := range cfg.KafkaBrokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	cfg.KafkaBrokers = brokers

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет сочетание драйвера и параметров подключения.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("SMM_POSTGRES_DSN is required for postgres storage")
		}
	case StorageDriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return errors.New("SMM_MONGO_URI is required for mongo storage")
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return errors.New("SMM_MONGO_DB is required for mongo storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	if c.StatsInterval <= 0 {
		return fmt.Errorf("SMM_STATS_INTERVAL must be positive, got %s", c.StatsInterval)
	}
	if c.ConnectAttempts <= 0 {
		return fmt.Errorf("SMM_CONNECT_ATTEMPTS must be positive, got %d", c.ConnectAttempts)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("SMM_LOG_LEVEL: %w", err)
	}
	return nil
}

// Level возвращает уровень логирования (info при ошибке разбора).
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
