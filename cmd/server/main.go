package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/lock"
	"github.com/iliyamo/cinema-booking/internal/pkg/logger"
	"github.com/iliyamo/cinema-booking/internal/pkg/metrics"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	log := logger.NewLogger(cfg.Env)
	logger.Set(log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbOpts := database.Options{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
	if cfg.DBMigrate {
		if cfg.IsProduction() {
			log.Warn("applying migrations on startup in production")
		}
		if err := database.Migrate(dbOpts); err != nil {
			log.Fatal("migrate failed", zap.Error(err))
		}
		log.Info("migrations applied")
	}
	db, err := database.Open(ctx, dbOpts)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()

	// redis backs the show lock, the response cache and the rate limiter;
	// without it the service still runs on database row locks alone
	var rdb *redis.Client
	if rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		log.Warn("redis unavailable, running without lock, cache and rate limit", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	shows := repository.NewShowRepo(db)
	users := repository.NewUserRepo(db)
	bookings := repository.NewBookingRepo(db)
	movies := repository.NewMovieRepo(db)
	theatres := repository.NewTheatreRepo(db)
	tokens := repository.NewTokenRepo(db)

	opts := []booking.Option{booking.WithLogger(log), booking.WithMetrics(m)}
	if rdb != nil {
		opts = append(opts, booking.WithLocker(lock.NewShowLocker(lock.NewManager(rdb), cfg.BookingLockTTL, m, log)))
	}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		opts = append(opts, booking.WithPublisher(pub))

		go func() {
			err := queue.StartBookingConsumer(ctx, queue.ConsumerConfig{URL: cfg.AMQPURL, LogPath: cfg.BookingLogPath}, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := booking.NewService(repository.NewTxManager(db), shows, users, bookings, opts...)

	cacheCfg := config.LoadCacheConfig()
	ready := []handler.Check{{Name: "mysql", Ping: db.PingContext}}
	if rdb != nil {
		ready = append(ready, handler.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}

	e := router.New(router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users, tokens, log),
		Bookings:  handler.NewBookingHandler(svc, bookings, log),
		Catalog:   handler.NewCatalogHandler(movies, theatres, shows, svc, router.CachePurger(rdb, cacheCfg.Prefix, log), log),
		Users:     handler.NewUserHandler(users, cfg.BcryptCost),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Metrics:   m,
		Log:       log,
		Ready:     ready,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
