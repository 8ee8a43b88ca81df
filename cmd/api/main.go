package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/ecofinds/ecofinds-api/internal/config"
	"github.com/ecofinds/ecofinds-api/internal/handler"
	"github.com/ecofinds/ecofinds-api/internal/middleware"
	"github.com/ecofinds/ecofinds-api/internal/repository"
	"github.com/ecofinds/ecofinds-api/internal/service"
	"github.com/ecofinds/ecofinds-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if err := repository.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsDir); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	listingRepo := repository.NewListingRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	checkoutStore := repository.NewCheckoutStore(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	messageRepo := repository.NewMessageRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	listingSvc := service.NewListingService(listingRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, listingRepo)
	orderSvc := service.NewOrderService(checkoutStore, orderRepo, listingRepo, amqpCh)
	messageSvc := service.NewMessageService(messageRepo, listingRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	listingH := handler.NewListingHandler(listingSvc, categoryRepo)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	messageH := handler.NewMessageHandler(messageSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	soldWorker := worker.NewSoldListingWorker(amqpCh, orderRepo, listingRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authRequired := middleware.AuthMiddleware(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.GET("/me", authRequired, authH.Me)

		v1.GET("/categories", listingH.Categories)

		listings := v1.Group("/listings")
		listings.GET("", listingH.List)
		listings.GET("/:id", listingH.GetByID)
		listings.GET("/user/:id", listingH.ListByUser)

		mine := listings.Group("", authRequired)
		mine.POST("", listingH.Create)
		mine.PUT("/:id", listingH.Update)
		mine.DELETE("/:id", listingH.Delete)
		mine.GET("/mine/list", listingH.ListMine)
		mine.POST("/:id/purchase", orderH.DirectPurchase)
		mine.POST("/:id/messages", messageH.PostToListing)

		cart := v1.Group("/cart", authRequired)
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PATCH("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		orders := v1.Group("/orders", authRequired)
		orders.POST("/checkout", orderH.Checkout)
		orders.GET("/mine", orderH.ListMine)
		orders.GET("/:id", orderH.GetOrder)

		v1.GET("/transactions", authRequired, orderH.Transactions)

		messages := v1.Group("/messages", authRequired)
		messages.GET("/threads", messageH.ListThreads)
		messages.GET("/threads/:id", messageH.ListMessages)
		messages.POST("/threads/:id", messageH.Reply)
	}

	if err := soldWorker.Start(ctx); err != nil {
		log.Error("start sold-listing worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	soldWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
