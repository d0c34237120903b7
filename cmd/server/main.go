package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/resource-booking/internal/booking"
	"github.com/iliyamo/resource-booking/internal/config"
	"github.com/iliyamo/resource-booking/internal/database"
	"github.com/iliyamo/resource-booking/internal/handler"
	"github.com/iliyamo/resource-booking/internal/lock"
	"github.com/iliyamo/resource-booking/internal/middleware"
	"github.com/iliyamo/resource-booking/internal/queue"
	"github.com/iliyamo/resource-booking/internal/repository"
	"github.com/iliyamo/resource-booking/internal/router"
	"github.com/iliyamo/resource-booking/internal/service"
)

// offlineGateway refuses payment requests when no broker is configured.
type offlineGateway struct{}

func (offlineGateway) PaymentRequested(context.Context, queue.PaymentRequestedEvent) error {
	return errors.New("message queue disabled")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()
	bookingCfg := config.LoadBookingConfig()
	queueCfg := config.LoadQueueConfig()
	paymentCfg := config.LoadPaymentConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: without it locking stays in-process and the
	// cache and rate limiter are skipped.
	rdb := config.NewRedisClient()
	var locker booking.Locker
	var mw router.Middleware
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, bookingCfg.LockTTL)
		mw.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		mw.Cache = middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	} else {
		log.Printf("redis unavailable: using in-process resource locks, cache and rate limit disabled")
	}

	resources := repository.NewResourceRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	payments := repository.NewPaymentRepo(db)
	messages := repository.NewMessageRepo(db)

	auth := handler.NewAuthHandler(cfg, users, tokens)
	var observers []booking.Observer
	var gateway service.Gateway = offlineGateway{}
	if queueCfg.Enabled {
		pub := queue.NewPublisher(queueCfg)
		defer pub.Close()
		observers = append(observers, pub)
		gateway = pub
		auth.Events = pub
		go func() {
			if err := queue.NewConsumer(queueCfg, messages, users).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	}
	if mw.Cache != nil {
		observers = append(observers, mw.Cache)
	}

	svc := booking.NewService(reservations, locker, booking.Options{
		PurposeRequired: bookingCfg.PurposeRequired,
		AutoApproveFree: bookingCfg.AutoApproveFree,
		CompleteOnRead:  bookingCfg.CompleteOnRead,
	}, observers...)
	paySvc := service.NewPaymentService(paymentCfg, svc, resources, payments, gateway)

	if bookingCfg.SweepInterval > 0 {
		go sweep(ctx, svc, tokens, bookingCfg.SweepInterval)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Auth:         auth,
		Resources:    handler.NewResourceHandler(resources, svc),
		Reservations: handler.NewReservationHandler(svc),
		Admin:        handler.NewAdminHandler(svc),
		Payments:     handler.NewPaymentHandler(paySvc, paymentCfg.CallbackToken),
		Messages:     handler.NewMessageHandler(messages),
		Health:       handler.Health(db),
	}, cfg.JWTSecret, mw)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// sweep completes ended APPROVED reservations on every tick and drops
// refresh tokens that have been dead for a day.
func sweep(ctx context.Context, svc *booking.Service, tokens *repository.TokenRepo, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := svc.CompleteExpired(ctx, 0); err != nil {
				log.Printf("sweeper: %v", err)
			} else if n > 0 {
				log.Printf("sweeper: completed %d reservations", n)
			}
			if _, err := tokens.PurgeExpired(ctx, time.Now().Add(-24*time.Hour)); err != nil {
				log.Printf("sweeper: purge tokens: %v", err)
			}
		}
	}
}
