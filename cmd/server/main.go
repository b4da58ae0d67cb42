package main // Entry point package

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/config"
	"github.com/splitbill/split-the-bill/internal/database"
	"github.com/splitbill/split-the-bill/internal/handler"
	"github.com/splitbill/split-the-bill/internal/middleware"
	"github.com/splitbill/split-the-bill/internal/notify"
	"github.com/splitbill/split-the-bill/internal/queue"
	"github.com/splitbill/split-the-bill/internal/router"
	"github.com/splitbill/split-the-bill/internal/service"
	"github.com/splitbill/split-the-bill/internal/storage/mysql"
	"github.com/splitbill/split-the-bill/pkg/logging"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	logging.Setup()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	store, err := mysql.New(db)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	hub := notify.New()

	// Settled bills are archived by a background consumer.
	go queue.StartBillClosedConsumer()
	publisher := service.PublisherFunc(queue.PublishBillClosed)

	users := service.NewUserService(store)
	bills := service.NewBillService(store, hub)
	splits := service.NewSplitService(store, hub)
	participants := service.NewParticipantService(store, hub, publisher)
	items := service.NewItemService(store, hub)

	e := echo.New()
	e.HideBanner = true

	// Rate limiting degrades to pass-through when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(users, cfg.TelegramBotToken, cfg.JWTSecret, cfg.AccessTTLMin))
	router.RegisterAPI(e, cfg.JWTSecret,
		handler.NewUserHandler(users),
		handler.NewBillHandler(bills),
		handler.NewParticipantHandler(participants),
		handler.NewSplitHandler(splits),
		handler.NewItemHandler(items),
		handler.NewEventsHandler(hub, bills),
	)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
