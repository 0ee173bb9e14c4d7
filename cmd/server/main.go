package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/config"
	"github.com/eventloop/enrollment/internal/database"
	"github.com/eventloop/enrollment/internal/engine"
	"github.com/eventloop/enrollment/internal/handler"
	"github.com/eventloop/enrollment/internal/middleware"
	"github.com/eventloop/enrollment/internal/notify"
	"github.com/eventloop/enrollment/internal/queue"
	"github.com/eventloop/enrollment/internal/repository"
	"github.com/eventloop/enrollment/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	eventRepo := repository.NewEventRepo(db)
	enrollmentRepo := repository.NewEnrollmentRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)

	// Admission engine: MySQL-backed critical section plus the
	// claim-then-publish notifier.
	store := repository.NewEngineStore(db, time.Duration(cfg.LockWaitSecs)*time.Second)
	dispatcher := notify.NewDispatcher(eventRepo, notificationRepo)
	coordinator := engine.NewCoordinator(store, dispatcher)

	// Redis is optional; a nil client disables rate limiting and caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}
	var limitMW, cacheMW echo.MiddlewareFunc
	if rdb != nil {
		limitMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// Handlers.
	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	publicH := handler.NewPublicHandler(eventRepo)
	enrollH := handler.NewEnrollmentHandler(coordinator, enrollmentRepo, notificationRepo)
	adminEventH := handler.NewAdminEventHandler(eventRepo)
	adminEnrollH := handler.NewAdminEnrollmentHandler(coordinator, enrollmentRepo)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterUser(e, enrollH, cfg.JWTSecret, limitMW)
	router.RegisterStaff(e, adminEventH, adminEnrollH, cfg.JWTSecret)

	// Promotion log consumer runs for the life of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartPromotionConsumer(); err != nil {
			log.Printf("promotion consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
