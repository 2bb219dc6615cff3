package main // Entry point package

import (
	"log"  // Logging library
	"time" // token TTL arithmetic

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/trexoil/edenlivingweb-sub000/internal/config"     // Internal config loader
	"github.com/trexoil/edenlivingweb-sub000/internal/database"   // MySQL pool constructor
	"github.com/trexoil/edenlivingweb-sub000/internal/handler"    // HTTP handlers
	"github.com/trexoil/edenlivingweb-sub000/internal/lifecycle"  // request lifecycle engine
	"github.com/trexoil/edenlivingweb-sub000/internal/middleware" // cache and rate-limit middleware
	"github.com/trexoil/edenlivingweb-sub000/internal/queue"      // notification consumer
	"github.com/trexoil/edenlivingweb-sub000/internal/repository" // data access layer
	"github.com/trexoil/edenlivingweb-sub000/internal/router"     // route registration
	queue_publisher "github.com/trexoil/edenlivingweb-sub000/internal/service"
)

func main() {
	_ = godotenv.Load() // best effort; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	refresh := repository.NewRefreshTokenRepo(db)

	engine := lifecycle.New(store, queue_publisher.Notifier{},
		time.Duration(cfg.ActionTokenTTLHrs)*time.Hour)

	e := echo.New() // Create Echo instance

	// Redis-backed middleware degrades to pass-through when Redis is
	// unreachable at startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e) // health check
	router.RegisterAuth(e, &handler.AuthHandler{
		Users:     users,
		Residents: store.Residents,
		Tokens:    refresh,
		Cfg:       cfg,
	})
	router.RegisterResident(e, &handler.ResidentHandler{Engine: engine, Store: store}, cfg.JWTSecret)
	router.RegisterStaff(e, &handler.StaffHandler{Engine: engine, Store: store}, cfg.JWTSecret)
	router.RegisterAdmin(e, &handler.AdminHandler{Engine: engine}, cfg.JWTSecret)

	// Background notification consumer; reconnects forever on its own.
	go func() {
		if err := queue.StartServiceEventsConsumer(); err != nil {
			log.Printf("notify-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
