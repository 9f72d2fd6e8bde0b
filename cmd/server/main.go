package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avetos/rental-backoffice/internal/config"
	"github.com/avetos/rental-backoffice/internal/database"
	"github.com/avetos/rental-backoffice/internal/handler"
	"github.com/avetos/rental-backoffice/internal/middleware"
	"github.com/avetos/rental-backoffice/internal/queue"
	"github.com/avetos/rental-backoffice/internal/repository"
	"github.com/avetos/rental-backoffice/internal/router"
	"github.com/avetos/rental-backoffice/internal/service"
)

func main() {
	// .env is a development convenience; deployments set real env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	items := repository.NewItemRepo(db)
	clients := repository.NewClientRepo(db)
	contacts := repository.NewContactRepo(db)
	suppliers := repository.NewSupplierRepo(db)
	events := repository.NewEventRepo(db)
	quotes := repository.NewQuotationRepo(db)
	reservations := repository.NewReservationRepo(db)

	quotation := service.NewQuotationService(db, quotes, items, events, reservations, cfg.QuotePrefix, cfg.DefaultCurrency)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	// Redis is optional; without it rate limiting and caching are off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens),
		Users:      handler.NewUserAdminHandler(cfg, users, tokens),
		Items:      handler.NewItemHandler(items, quotation),
		Clients:    handler.NewClientHandler(clients, contacts),
		Contacts:   handler.NewContactHandler(contacts, clients),
		Suppliers:  handler.NewSupplierHandler(suppliers),
		Events:     handler.NewEventHandler(events, clients),
		Quotations: handler.NewQuotationHandler(quotation, quotes, reservations),
	}
	router.Register(e, h, cfg.JWTSecret, cacheMW)

	// Background consumer appending accepted quotations to the log.
	go func() {
		if err := queue.StartAcceptedConsumer(); err != nil {
			log.Printf("acceptance consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
