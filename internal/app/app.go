package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/smmstore/internal/health"
	"github.com/vladislavdragonenkov/smmstore/internal/service/stats"
	"github.com/vladislavdragonenkov/smmstore/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает хранилище, HTTP /metrics и health endpoints и stats collector,
// затем ждёт отмены ctx и закрывает всё в обратном порядке.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.WithError(err).Warn("dependencies closed with error")
		} else {
			logger.Info("dependencies closed")
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion(), cfg.StorageDriver)
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", deps.Store))

	collector := stats.NewCollector(
		deps.Store,
		stats.WithLogger(logger.WithField("component", "stats-collector")),
		stats.WithInterval(cfg.StatsInterval),
		stats.WithMetrics(deps.Metrics),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.Run(runCtx)
	}()

	srv, errCh := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		runErr = ctx.Err()
	case err := <-errCh:
		logger.WithError(err).Error("metrics server failed")
		runErr = err
	}

	cancel()
	shutdownHTTP(srv, logger)
	wg.Wait()

	return runErr
}

// newMux собирает HTTP-маршруты: /metrics и health endpoints.
func newMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Register(mux)
	return mux
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *healthcheck.Handler) (*http.Server, <-chan error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(healthHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return srv, errCh
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
