package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/jmorales/wedding-pass-api/internal/config"
	"github.com/jmorales/wedding-pass-api/internal/database"
	"github.com/jmorales/wedding-pass-api/internal/handler"
	"github.com/jmorales/wedding-pass-api/internal/middleware"
	"github.com/jmorales/wedding-pass-api/internal/queue"
	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/router"
	"github.com/jmorales/wedding-pass-api/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	// Redis is optional; with no client the limiter and cache become
	// pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tables := repository.NewTableRepo(db)
	passes := repository.NewGuestPassRepo(db)
	entries := repository.NewEntryLogRepo(db)
	eventCfg := repository.NewEventConfigRepo(db)

	passSvc := service.NewPassService(db, tables, passes, entries)
	checkin := service.NewCheckinEngine(db, passes, entries)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	tableH := handler.NewTableHandler(tables)
	passH := handler.NewPassHandler(passes, passSvc)
	statsH := handler.NewStatsHandler(tables, passes, eventCfg)
	checkinH := handler.NewCheckinHandler(tables, passes, entries, checkin)
	confirmH := handler.NewConfirmHandler(tables, passes, passSvc)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e, confirmH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAdmin(e, tableH, passH, statsH, cfg.JWTSecret, cacheMW)
	router.RegisterCheckin(e, checkinH, cfg.JWTSecret, rateMW)

	go func() {
		if err := queue.StartPassEventConsumer(); err != nil {
			log.Printf("pass event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
