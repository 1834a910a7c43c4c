package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/davitr/go-storefront/internal/cart"
	"github.com/davitr/go-storefront/internal/catalog"
	"github.com/davitr/go-storefront/internal/config"
	"github.com/davitr/go-storefront/internal/httpx"
	kafkax "github.com/davitr/go-storefront/internal/kafka"
	"github.com/davitr/go-storefront/internal/notify"
	"github.com/davitr/go-storefront/internal/orders"
	"github.com/davitr/go-storefront/internal/payment"
	"github.com/davitr/go-storefront/internal/postgres"
	"github.com/davitr/go-storefront/internal/redisx"
	"github.com/davitr/go-storefront/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	pStatus.Start(ctx)

	// Stores & services
	catalogRepo := &catalog.Repo{DB: db}
	catalogSvc := &catalog.Service{Repo: catalogRepo, Redis: rdb}
	cartRepo := &cart.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	notifyRepo := &notify.Repo{DB: db}
	engine := &stock.Engine{Store: &stock.SQLStore{DB: db}, TTL: cfg.ReservationTTL}
	gateway := payment.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret)
	pricing := httpx.Pricing{
		ShippingFlatCents: cfg.ShippingFlatCents,
		TaxRateBps:        cfg.TaxRateBps,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Repo: catalogRepo, Cache: catalogSvc}).Register(router)
	(&httpx.CartHandler{Cart: cartRepo, Products: catalogSvc}).Register(router)
	(&httpx.PaymentsHandler{Cart: cartRepo, Engine: engine, Gateway: gateway, Pricing: pricing}).Register(router)
	(&httpx.OrdersHandler{
		Repo:            orderRepo,
		Cart:            cartRepo,
		CreatedProducer: pCreated,
		StatusProducer:  pStatus,
		Redis:           rdb,
		Service:         cfg.ServiceName,
		Pricing:         pricing,
	}).Register(router)
	(&httpx.CronHandler{Engine: engine, Secret: cfg.CronSecret}).Register(router)
	(&httpx.NotificationsHandler{Repo: notifyRepo}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close()
	pStatus.Close()
	cancel()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
