package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	emconfig "lifeline/internal/emergency/config"
	"lifeline/internal/emergency/grant"
	"lifeline/internal/emergency/handler"
	emmetrics "lifeline/internal/emergency/metrics"
	"lifeline/internal/emergency/ports"
	"lifeline/internal/emergency/service/auditlog"
	"lifeline/internal/emergency/service/lockout"
	"lifeline/internal/emergency/service/methods"
	"lifeline/internal/emergency/service/profile"
	"lifeline/internal/emergency/service/verification"
	attemptstore "lifeline/internal/emergency/store/attempt"
	"lifeline/internal/emergency/store/lockcache"
	"lifeline/internal/emergency/store/locker"
	profilestore "lifeline/internal/emergency/store/profile"
	"lifeline/internal/platform/config"
	"lifeline/internal/platform/httpserver"
	"lifeline/internal/platform/logger"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/platform/postgres"
	"lifeline/internal/platform/redis"
	ratelimit "lifeline/internal/ratelimit/middleware"
	"lifeline/internal/ratelimit/store/bucket"
	audit "lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/audit/publisher"
	kafkastore "lifeline/pkg/platform/audit/store/kafka"
	auditmemory "lifeline/pkg/platform/audit/store/memory"
	"lifeline/pkg/platform/httputil"
	"lifeline/pkg/platform/middleware/admin"
	"lifeline/pkg/platform/middleware/metadata"
	"lifeline/pkg/platform/middleware/requestid"
	"lifeline/pkg/platform/middleware/requesttime"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log)
		},
	}
}

// storage is the set of persistence adapters chosen by configuration.
type storage struct {
	profiles ports.ProfileStore
	attempts ports.AttemptStore
	locker   ports.ProfileLocker
	cache    ports.LockCache
	buckets  ratelimit.BucketStore
	sweep    func(now time.Time) int
	events   audit.Store
	checks   map[string]func(context.Context) error
	closers  []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	events := newPublisher(store.events, cfg.Kafka, log, reg)
	defer func() { _ = events.Close() }()

	router, err := newRouter(cfg, log, reg, store, events)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.ReadHeaderTimeout)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting lifeline", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if store.sweep != nil {
		g.Go(func() error {
			sweepBuckets(gctx, store.sweep, cfg.Server.RateLimitWindow)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newPublisher buffers events in front of the sink. Operations events are
// sampled when the configured rate is below one.
func newPublisher(sink audit.Store, cfg config.KafkaConfig, log *slog.Logger, reg *prometheus.Registry) *publisher.Publisher {
	opts := []publisher.Option{
		publisher.WithAsyncBuffer(cfg.BufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
		publisher.WithCircuitBreaker(publisher.NewCircuitBreaker(5, 30*time.Second)),
	}
	if cfg.OpsSampleRate < 1 {
		opts = append(opts, publisher.WithSampler(publisher.NewSampler(cfg.OpsSampleRate)))
	}
	return publisher.NewPublisher(sink, opts...)
}

// sweepBuckets drops idle in-memory rate limit buckets once per window.
func sweepBuckets(ctx context.Context, sweep func(time.Time) int, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage, error) {
	s := &storage{checks: map[string]func(context.Context) error{}}

	if cfg.Postgres.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.checks["postgres"] = pool.Ping
		s.usePostgres(pool)
	} else {
		log.Warn("postgres not configured, profiles and audit log are kept in memory")
		s.profiles = profilestore.New()
		s.attempts = attemptstore.New()
		s.locker = locker.New()
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		s.close()
		return nil, err
	}
	if client != nil {
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.checks["redis"] = client.Health
		s.cache = lockcache.NewRedis(client.Client, cfg.Redis.LockCacheTTL)
		s.buckets = bucket.NewRedisBucketStore(client.Client)
	} else {
		s.cache = lockcache.New()
		buckets := bucket.NewInMemoryBucketStore()
		s.buckets, s.sweep = buckets, buckets.Sweep
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafkastore.New(kafkastore.Config{
			Brokers:     cfg.Kafka.Brokers,
			TopicPrefix: cfg.Kafka.TopicPrefix,
			Partitions:  cfg.Kafka.Partitions,
			Replication: cfg.Kafka.Replication,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, sink.Close)
		s.checks["kafka"] = sink.Ping
		if err := sink.EnsureTopics(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("ensure kafka topics: %w", err)
		}
		s.events = sink
	} else {
		log.Warn("kafka not configured, notification events stay in memory")
		s.events = auditmemory.NewInMemoryStore()
	}
	return s, nil
}

func (s *storage) usePostgres(pool *pgxpool.Pool) {
	s.profiles = profilestore.NewPostgres(pool)
	s.attempts = attemptstore.NewPostgres(pool)
	s.locker = locker.NewAdvisory(pool)
}

func engineConfig(cfg config.EngineConfig, grantTTL time.Duration) *emconfig.Config {
	c := emconfig.DefaultConfig()
	c.QRTokenTTL = cfg.QRTokenTTL
	c.OTPTTL = cfg.OTPTTL
	c.QuotaTimezone = cfg.QuotaTimezone
	c.BcryptCost = cfg.BcryptCost
	if grantTTL > 0 {
		c.GrantTTL = grantTTL
	}
	c.Security.MaxDailyAccess = cfg.MaxDailyAccess
	c.Security.AutoLockAfterFailures = cfg.AutoLockAfterFailures
	c.Security.LockDuration = cfg.LockDuration
	c.Security.FailureWindow = cfg.FailureWindow
	return c
}

func newRouter(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry, store *storage, events ports.EventPublisher) (http.Handler, error) {
	engineCfg := engineConfig(cfg.Engine, cfg.Grant.TTL)
	m := emmetrics.New(reg)

	registry, err := methods.New(store.profiles,
		methods.WithConfig(engineCfg),
		methods.WithLocker(store.locker),
		methods.WithPublisher(events),
		methods.WithMetrics(m),
		methods.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	auditLog, err := auditlog.New(store.attempts, auditlog.WithConfig(engineCfg), auditlog.WithLogger(log))
	if err != nil {
		return nil, err
	}
	lockSvc, err := lockout.New(auditLog, lockout.WithCache(store.cache), lockout.WithLogger(log))
	if err != nil {
		return nil, err
	}

	var grants *grant.Service
	opts := []verification.Option{
		verification.WithConfig(engineCfg),
		verification.WithPublisher(events),
		verification.WithMetrics(m),
		verification.WithLogger(log),
	}
	if cfg.Grant.SigningKey != "" {
		grants, err = grant.NewService(cfg.Grant.SigningKey, cfg.Grant.Issuer, cfg.Grant.Audience, engineCfg.GrantTTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, verification.WithGrants(grants))
	}
	verifier, err := verification.New(store.profiles, registry, auditLog, lockSvc, store.locker, opts...)
	if err != nil {
		return nil, err
	}
	profiles, err := profile.New(store.profiles, registry,
		profile.WithConfig(engineCfg),
		profile.WithLocker(store.locker),
		profile.WithPublisher(events),
		profile.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(store.checks, log))
	r.Handle("/metrics", metrics.Handler(reg))

	var validator handler.GrantValidator
	if grants != nil {
		validator = grants
	}
	limiter := ratelimit.New(store.buckets, cfg.Server.RateLimit, cfg.Server.RateLimitWindow, log)
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit)
		handler.New(verifier, profiles, registry, auditLog, validator, log).
			Register(r, admin.RequireAdminToken(cfg.Server.AdminToken, log))
	})
	return r, nil
}

// readiness reports 503 when any configured backend fails its ping.
func readiness(checks map[string]func(context.Context) error, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "readiness check failed", "backend", name, "error", err)
				body[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
