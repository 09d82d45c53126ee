package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/retreat-allocation/internal/config"
	"github.com/iliyamo/retreat-allocation/internal/database"
	"github.com/iliyamo/retreat-allocation/internal/handler"
	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/logger"
	"github.com/iliyamo/retreat-allocation/internal/metrics"
	"github.com/iliyamo/retreat-allocation/internal/queue"
	"github.com/iliyamo/retreat-allocation/internal/repository"
	"github.com/iliyamo/retreat-allocation/internal/router"
	"github.com/iliyamo/retreat-allocation/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	allocCfg := config.LoadAllocationConfig()
	seating, err := config.LoadSeatingDefaults(allocCfg.SeatingFile)
	if err != nil {
		lg.Fatal("seating defaults", zap.Error(err))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.RunMigrations(db, lg); err != nil {
			lg.Fatal("migrations", zap.Error(err))
		}
	}

	// Redis is optional; without it selections and the swap journal stay
	// in-process and rate limiting and caching are off.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	deps := service.Deps{
		Participants: repository.NewParticipantRepo(db),
		Courses:      repository.NewCourseRepo(db),
		Resources:    repository.NewResourceRepo(db),
		Events:       queue.NewPublisher(cfg.AMQPURL, lg),
		Log:          lg.Named("allocation"),
		Config:       allocCfg,
		Defaults:     seating,
	}
	checks := map[string]handler.Check{"db": db.PingContext}
	if rdb != nil {
		defer rdb.Close()
		deps.Selections = repository.NewRedisSelectionStore(rdb, allocCfg.SelectionTTL)
		deps.Journal = repository.NewSwapJournal(rdb, allocCfg.JournalTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		lg.Warn("redis unavailable; using in-process selection store and swap journal")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.NewPrometheus(reg, "retreat")
	svc := service.New(deps)

	cacheCfg := config.LoadCacheConfig()
	tr := i18n.NewTranslator(cfg.DefaultLocale, lg)
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			lg.Info("request", zap.String("method", v.Method), zap.String("uri", v.URI),
				zap.Int("status", v.Status), zap.Duration("latency", v.Latency), zap.Error(v.Error))
			return nil
		},
	}))
	router.RegisterRoutes(e, router.Deps{
		Admin:     handler.NewAdminHandler(svc, tr, lg.Named("http"), cacheCfg, rdb),
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     cacheCfg,
		Redis:     rdb,
		Checks:    checks,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port
	g.Go(func() error {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})
	if cfg.ConsumeEvents {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir, lg)
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		lg.Error("server stopped", zap.Error(err))
		return
	}
	lg.Info("server stopped")
}
