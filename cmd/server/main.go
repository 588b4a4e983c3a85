package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stablepay.backend/internal/config"
	"stablepay.backend/internal/infrastructure/blockchain"
	"stablepay.backend/internal/infrastructure/custody"
	"stablepay.backend/internal/infrastructure/gateway"
	"stablepay.backend/internal/infrastructure/jobs"
	"stablepay.backend/internal/infrastructure/models"
	"stablepay.backend/internal/infrastructure/repositories"
	"stablepay.backend/internal/infrastructure/swap"
	"stablepay.backend/internal/interfaces/http/handlers"
	"stablepay.backend/internal/interfaces/http/middleware"
	"stablepay.backend/internal/usecases"
	"stablepay.backend/pkg/crypto"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/paylink"
	"stablepay.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("database not available: %v (endpoints will return errors)", err)
	} else if err := db.AutoMigrate(
		&models.PaymentJob{},
		&models.Merchant{},
		&models.Product{},
		&models.Subscription{},
		&models.WebhookDelivery{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Repositories
	jobRepo := repositories.NewJobRepository(db)
	merchantRepo := repositories.NewMerchantRepository(db)
	productRepo := repositories.NewProductRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	deliveryRepo := repositories.NewWebhookDeliveryRepository(db)

	// Security primitives
	secretBox, err := crypto.NewSecretBox(cfg.Security.SessionEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize session encryption: %w", err)
	}
	linkSigner := paylink.NewSigner(cfg.Security.PaymentLinkSecret, cfg.Security.PaymentLinkTTL)

	// Chain infrastructure
	clientFactory := blockchain.NewClientFactory()
	swapProvider, err := swap.NewProvider(cfg.Swap, clientFactory)
	if err != nil {
		return fmt.Errorf("failed to initialize swap provider: %w", err)
	}
	custodyClient := custody.NewClient(cfg.Custody.BaseURL, cfg.Custody.APIKey, cfg.Custody.WalletSetID)
	gatewayCache := redis.NewGatewayCache(cfg.Gateway.ContractCacheTTL)
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, gatewayCache)

	// Usecases
	scanner := usecases.NewBalanceScanner(cfg.Chains, clientFactory)
	planner, err := usecases.NewRoutePlanner(cfg.Chains, swapProvider, cfg.Payment)
	if err != nil {
		return fmt.Errorf("failed to initialize route planner: %w", err)
	}
	dispatcher := usecases.NewWebhookDispatcher(merchantRepo, deliveryRepo)
	orchestrator := usecases.NewPaymentOrchestrator(jobRepo, scanner, planner, swapProvider, custodyClient, gatewayClient, dispatcher, cfg)
	merchantUsecase := usecases.NewMerchantUsecase(merchantRepo)
	productUsecase := usecases.NewProductUsecase(productRepo, merchantRepo)
	subscriptionUsecase := usecases.NewSubscriptionUsecase(subscriptionRepo, productRepo, secretBox)

	// Handlers
	jobHandler := handlers.NewPaymentJobHandler(orchestrator)
	merchantHandler := handlers.NewMerchantHandler(merchantUsecase)
	productHandler := handlers.NewProductHandler(productUsecase)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionUsecase)
	linkHandler := handlers.NewPaymentLinkHandler(linkSigner, merchantUsecase, productUsecase, orchestrator)

	// Background sweeps
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expirySweep := jobs.NewExpirySweep(jobRepo, cfg.Payment.ExpirySweepEvery)
	stuckSweep := jobs.NewStuckSweep(jobRepo, cfg.Payment.StuckTimeout, cfg.Payment.StuckSweepEvery)
	billingSweep := jobs.NewBillingSweep(subscriptionUsecase, orchestrator, cfg.Payment.BillingSweepEvery)
	go expirySweep.Start(ctx)
	go stuckSweep.Start(ctx)
	go billingSweep.Start(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	registerHealthRoute(r, sqlDB)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		jobHandler:          jobHandler,
		merchantHandler:     merchantHandler,
		productHandler:      productHandler,
		subscriptionHandler: subscriptionHandler,
		linkHandler:         linkHandler,
	})

	// Graceful shutdown: stop the sweeps and drain in-flight job pipelines
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(context.Background(), "Shutting down server")
		expirySweep.Stop()
		stuckSweep.Stop()
		billingSweep.Stop()
		cancel()
		orchestrator.Wait()
	}()

	logger.Info(context.Background(), "Server starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("chains", len(cfg.Chains)))

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
