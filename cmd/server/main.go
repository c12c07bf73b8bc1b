package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	jwttoken "roster/internal/jwt_token"
	"roster/internal/platform/config"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/logger"
	platformmetrics "roster/internal/platform/metrics"
	ratelimitmetrics "roster/internal/ratelimit/metrics"
	ratelimitmw "roster/internal/ratelimit/middleware"
	registryhandler "roster/internal/registry/handler"
	"roster/internal/registry/metrics"
	"roster/internal/registry/models"
	"roster/internal/registry/service"
	authmw "roster/pkg/platform/middleware/auth"
	"roster/pkg/platform/middleware/request"
	"roster/pkg/platform/middleware/requesttime"
)

const shutdownGrace = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := platformmetrics.NewRegistry()

	infra, err := buildInfra(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer infra.close(log)

	router := newRouter(cfg, log, reg, infra)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	for _, bg := range infra.background {
		g.Go(func() error { return bg(gctx) })
	}
	g.Go(func() error {
		log.Info("starting roster",
			"addr", cfg.Addr,
			"backend", cfg.Backend,
			"event_sink", cfg.Sink,
		)
		return httpserver.Run(gctx, srv, shutdownGrace)
	})
	return g.Wait()
}

// newRouter mounts the registry API behind auth and per-caller rate limiting.
func newRouter(cfg config.Server, log *slog.Logger, reg *prometheus.Registry, infra *infra) http.Handler {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
		service.WithEventSink(infra.sink),
	}
	registries := map[models.Kind]registryhandler.Registry{
		models.KindDense:  service.NewDense(infra.txFor(models.KindDense), opts...),
		models.KindLinked: service.NewLinked(infra.txFor(models.KindLinked), opts...),
	}

	limiter := ratelimitmw.New(infra.buckets, cfg.RateLimit.Limit, cfg.RateLimit.Window, log,
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	)
	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(chimw.Recoverer)
	router.Get("/healthz", healthHandler(infra))
	router.Handle("/metrics", platformmetrics.Handler(reg))
	router.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		r.Use(limiter.RateLimitCaller)
		registryhandler.New(registries, log).Register(r)
	})
	return router
}

func healthHandler(infra *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := infra.health(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
