package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/config"
	"event-ticketing/internal/coupon"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/inventory"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	orderkafka "event-ticketing/internal/order/kafka"
	"event-ticketing/internal/order/order_api"
	"event-ticketing/internal/query"
	"event-ticketing/internal/sse"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if err := migrations.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	log.Info("DATABASE", "Connected to Postgres, schema up to date")

	// --- Redis (token-verification cache) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	tokenCache := auth.NewRedisTokenCache(redisClient, cfg.Redis.TokenTTL)
	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", cfg.Redis.Addr))

	// --- Kafka ---
	var producer order.Publisher
	if cfg.Kafka.Enabled {
		if err := orderkafka.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topic %s: %v", cfg.Kafka.OrderTopic, err))
		}
		kp := orderkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer kp.Close()
		producer = kp
		log.Info("KAFKA", fmt.Sprintf("Producing order events to %s", cfg.Kafka.OrderTopic))
	} else {
		log.Warn("KAFKA", "Kafka disabled, order events will not be published")
	}

	// --- Services ---
	inventoryDB := &inventory.DB{Bun: bunDB}
	couponDB := &coupon.DB{Bun: bunDB}
	orderDB := &orderdb.DB{Bun: bunDB}

	orderService := order.NewOrderService(orderDB, inventoryDB, couponDB, producer, log)
	queryService := query.NewQueryService(orderDB, inventoryDB, log)
	emitter := sse.NewCheckoutEventEmitter()
	handler := order_api.NewHandler(orderService, queryService, emitter, log)

	// --- Router ---
	r := chi.NewRouter()
	r.Route("/events", func(r chi.Router) {
		if cfg.Auth.Enabled {
			authMiddleware, err := auth.Middleware(cfg.Auth.OIDCIssuer, tokenCache)
			if err != nil {
				log.Fatal("AUTH", fmt.Sprintf("Failed to set up auth middleware: %v", err))
			}
			r.With(authMiddleware).Post("/eventOrder", handler.PlaceOrder)
		} else {
			log.Warn("AUTH", "Auth disabled, checkout is unauthenticated")
			r.Post("/eventOrder", handler.PlaceOrder)
		}
		r.Get("/eventOrder/{accountID}", handler.ListOrdersForAccount)
		r.Get("/eventOrderDetail/{orderID}", handler.GetOrderDetail)
		r.Get("/eventOrderTicketCheck", handler.CheckTicket)
		r.Get("/eventOrderTicketQR/{ticketID}", handler.TicketQRImage)
		r.Get("/eventOrderStream/{eventID}", handler.StreamEventCheckouts)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Order service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	log.Info("SERVER", "Server exited gracefully")
}
