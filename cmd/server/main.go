package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "carebridge/internal/jwt_token"
	"carebridge/internal/platform/config"
	"carebridge/internal/platform/httpserver"
	kafkaplatform "carebridge/internal/platform/kafka"
	"carebridge/internal/platform/logger"
	httpmetrics "carebridge/internal/platform/metrics"
	"carebridge/internal/platform/postgres"
	redisplatform "carebridge/internal/platform/redis"
	"carebridge/internal/verification/handler"
	"carebridge/internal/verification/lock"
	verificationmetrics "carebridge/internal/verification/metrics"
	"carebridge/internal/verification/service"
	"carebridge/internal/verification/store"
	audit "carebridge/pkg/platform/audit"
	"carebridge/pkg/platform/audit/publishers/compliance"
	"carebridge/pkg/platform/audit/publishers/ops"
	auditkafka "carebridge/pkg/platform/audit/store/kafka"
	"carebridge/pkg/platform/audit/store/logstore"
	auditpostgres "carebridge/pkg/platform/audit/store/postgres"
	"carebridge/pkg/platform/audit/worker"
)

const shutdownGrace = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// infra holds optional backing services. Nil fields mean "not configured".
type infra struct {
	db    *sql.DB
	redis *redisplatform.Client
	kafka *kgo.Client
}

func (i *infra) Close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// connect dials every configured dependency concurrently and fails fast.
func connect(ctx context.Context, cfg config.Server) (*infra, error) {
	i := &infra{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db, err := postgres.Open(gctx, cfg.Postgres)
		i.db = db
		return err
	})
	g.Go(func() error {
		client, err := redisplatform.New(gctx, cfg.Redis)
		i.redis = client
		return err
	})
	g.Go(func() error {
		client, err := kafkaplatform.New(gctx, cfg.Kafka)
		if err != nil || client == nil {
			return err
		}
		i.kafka = client
		return kafkaplatform.EnsureTopic(gctx, client, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions, cfg.Kafka.Replicas)
	})
	if err := g.Wait(); err != nil {
		i.Close()
		return nil, err
	}
	return i, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	deps, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Ops events and, without postgres, compliance events go straight to the
	// broker or the log. With postgres, compliance events ride the outbox.
	var sink interface {
		audit.Store
		worker.Sink
	} = logstore.New(log)
	if deps.kafka != nil {
		sink = auditkafka.New(deps.kafka, cfg.Kafka.AuditTopic)
	}

	opsPublisher := ops.New(sink,
		ops.WithSuppressor(ops.NewSuppressor(cfg.Audit.SuppressWindow, cfg.Audit.SuppressThreshold)),
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics(prometheus.DefaultRegisterer)),
	)

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(verificationmetrics.New()),
		service.WithOpsTracker(opsPublisher),
	}

	var (
		records service.Store
		relay   *worker.Worker
	)
	complianceMetrics := compliance.NewMetrics(prometheus.DefaultRegisterer)
	if deps.db != nil {
		outbox := auditpostgres.New(deps.db)
		records = store.NewPostgres(deps.db)
		relay = worker.NewWorker(outbox, sink,
			worker.WithInterval(cfg.Audit.RelayInterval),
			worker.WithBatchSize(cfg.Audit.RelayBatchSize),
			worker.WithLogger(log),
		)
		svcOpts = append(svcOpts,
			service.WithTxRunner(newDecisionPostgresTx(deps.db)),
			service.WithAuditPublisher(compliance.New(outbox, compliance.WithLogger(log), compliance.WithMetrics(complianceMetrics))),
		)
	} else {
		mem := store.NewInMemory()
		if cfg.SeedDemo {
			if err := seedDemo(ctx, mem, time.Now()); err != nil {
				return err
			}
			log.InfoContext(ctx, "demo records seeded")
		}
		records = mem
		svcOpts = append(svcOpts,
			service.WithTxRunner(mem),
			service.WithAuditPublisher(compliance.New(sink, compliance.WithLogger(log), compliance.WithMetrics(complianceMetrics))),
		)
	}

	if deps.redis != nil {
		svcOpts = append(svcOpts, service.WithLocker(lock.NewRedis(deps.redis.Client, cfg.Redis.LockTTL, lock.WithLogger(log))))
	}

	svc, err := service.New(records, svcOpts...)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	router := newRouter(cfg, deps, log,
		handler.New(svc, jwttoken.NewJWTServiceAdapter(jwtService), log, httpmetrics.New().Latency))

	srv := httpserver.New(cfg.Addr, router)
	log.InfoContext(ctx, "starting verification service",
		"addr", cfg.Addr,
		"env", cfg.Environment,
		"postgres", deps.db != nil,
		"redis", deps.redis != nil,
		"kafka", deps.kafka != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, shutdownGrace, log)
	})
	if relay != nil {
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func newRouter(cfg config.Server, deps *infra, log *slog.Logger, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.ready(req.Context()); err != nil {
			log.WarnContext(req.Context(), "readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)
	return r
}

func (i *infra) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if i.db != nil {
		if err := i.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if i.redis != nil {
		if err := i.redis.Health(ctx); err != nil {
			return err
		}
	}
	if i.kafka != nil {
		if err := i.kafka.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
