// Command ratelimitd runs the distributed rate-limiting service: it wires
// the configured admission algorithm, a Redis-backed store, a circuit
// breaker and rule resolver into the Check Coordinator, then serves the
// HTTP surface from spec.md section 6. Grounded on the teacher's
// cmd/example-server/main.go (env-driven Redis address, functional options
// at construction) generalized from a single demo handler to the full
// service.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/axiomwire/ratelimitd/internal/config"
	"github.com/axiomwire/ratelimitd/internal/httpapi"
	"github.com/axiomwire/ratelimitd/pkg/algorithm"
	"github.com/axiomwire/ratelimitd/pkg/breaker"
	"github.com/axiomwire/ratelimitd/pkg/metrics"
	"github.com/axiomwire/ratelimitd/pkg/ratelimit"
	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

func main() {
	if err := run(); err != nil {
		zap.L().Fatal("ratelimitd exited", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.Load(os.Environ())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	redisClient := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort(cfg.StoreHost, strconv.Itoa(cfg.StorePort)),
		DB:   cfg.StoreDB,
	})
	defer redisClient.Close()

	backingStore := store.NewRedisStore(redisClient)

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	var promRecorder *metrics.PrometheusRecorder
	if cfg.MetricsEnabled {
		promRecorder = metrics.NewPrometheusRecorder()
		recorder = promRecorder
	}

	br := breaker.New(breaker.Options{
		FailureThreshold: cfg.BreakerThreshold,
		CooldownPeriod:   cfg.BreakerCooldown(),
		OnStateChange: func(from, to breaker.State) {
			recorder.CircuitStateChange(from.String(), to.String())
			logger.Info("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	registerCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	algo, err := buildAlgorithm(registerCtx, cfg.Algorithm, backingStore)
	cancel()
	if err != nil {
		return err
	}

	def, byClient := config.DefaultRules()
	if cfg.RulesJSON != "" {
		def, byClient, err = config.ParseRules([]byte(cfg.RulesJSON))
		if err != nil {
			return err
		}
	}
	resolver := rules.NewResolver(def, byClient)

	checker := ratelimit.NewChecker(algo, cfg.Algorithm, br, resolver,
		ratelimit.WithFailMode(cfg.FailMode),
		ratelimit.WithRecorder(recorder),
		ratelimit.WithLogger(logger),
		ratelimit.WithStoreTimeout(cfg.StoreTimeout()),
	)

	storeTimeout := cfg.StoreTimeout()
	storeHealthy := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return backingStore.Ping(ctx) == nil
	}

	var metricsHandler http.Handler
	if promRecorder != nil {
		metricsHandler = promRecorder.Handler()
	}

	httpSrv := httpapi.NewHTTPServer(cfg.HTTPListenAddr, httpapi.NewServer(httpapi.Config{
		Checker:        checker,
		Breaker:        br,
		StoreHealthy:   storeHealthy,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	}), 5*time.Second, 5*time.Second)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ratelimitd listening", zap.String("addr", cfg.HTTPListenAddr), zap.String("algorithm", cfg.Algorithm), zap.String("fail_mode", string(cfg.FailMode)))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func buildAlgorithm(ctx context.Context, name string, s store.Store) (algorithm.Algorithm, error) {
	switch name {
	case "token_bucket":
		return algorithm.NewTokenBucket(ctx, s)
	case "fixed_window":
		return algorithm.NewFixedWindow(ctx, s)
	case "sliding_window":
		return algorithm.NewSlidingWindow(ctx, s)
	default:
		return nil, errInvalidAlgorithm{name}
	}
}

type errInvalidAlgorithm struct{ name string }

func (e errInvalidAlgorithm) Error() string {
	return "invalid ALGORITHM " + e.name + ": must be token_bucket, fixed_window, or sliding_window"
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
