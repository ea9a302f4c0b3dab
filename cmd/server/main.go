package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/naru6be1/PolkaVault/internal/assets"
	"github.com/naru6be1/PolkaVault/internal/auth"
	"github.com/naru6be1/PolkaVault/internal/config"
	"github.com/naru6be1/PolkaVault/internal/database"
	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/liquidity"
	"github.com/naru6be1/PolkaVault/internal/metrics"
	"github.com/naru6be1/PolkaVault/internal/staking"
	"github.com/naru6be1/PolkaVault/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the ledger API server with graceful shutdown
// support. It sets up all services, the database connection and API routes.
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	assetService := assets.NewService(db)
	assetHandlers := assets.NewGinHandlers(assetService)

	ledgerService := ledger.NewService(db)
	ledgerHandlers := ledger.NewGinHandlers(ledgerService)

	liquidityService := liquidity.NewService(db)
	liquidityHandlers := liquidity.NewGinHandlers(liquidityService)

	stakingService := staking.NewService(db)
	stakingHandlers := staking.NewGinHandlers(stakingService)

	// Setup middleware
	router.Use(metrics.Middleware())
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, assetHandlers, ledgerHandlers, liquidityHandlers, stakingHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Read routes: Public listing of assets, pools and transactions
// - Ledger routes: Mutating operations protected by JWT authentication
// - Internal routes: Pool creation, protected by internal authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	assetHandlers *assets.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
	liquidityHandlers *liquidity.GinHandlers,
	stakingHandlers *staking.GinHandlers,
) {
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public read routes
		v1.GET("/assets", assetHandlers.ListAssetsHandler())
		v1.GET("/assets/:asset_id", assetHandlers.GetAssetHandler())
		v1.GET("/transactions", ledgerHandlers.ListTransactionsHandler())
		v1.GET("/transactions/:asset_id", ledgerHandlers.ListAssetTransactionsHandler())
		v1.GET("/pools", liquidityHandlers.ListPoolsHandler())
		v1.GET("/pools/:pool_id", liquidityHandlers.GetPoolHandler())
		v1.GET("/staking/pools", stakingHandlers.ListPoolsHandler())

		// Mutating routes, protected by JWT
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			protected.POST("/assets", assetHandlers.CreateAssetHandler())
			protected.POST("/transfer", assetHandlers.TransferHandler())

			protected.GET("/positions", liquidityHandlers.ListPositionsHandler())
			protected.POST("/pools/:pool_id/deposit", liquidityHandlers.DepositHandler())
			protected.POST("/positions/:position_id/withdraw", liquidityHandlers.WithdrawHandler())

			protected.GET("/staking/positions", stakingHandlers.ListPositionsHandler())
			protected.POST("/staking/pools/:pool_id/stake", stakingHandlers.StakeHandler())
			protected.POST("/staking/positions/:position_id/unstake", stakingHandlers.UnstakeHandler())
			protected.POST("/staking/positions/:position_id/claim", stakingHandlers.ClaimHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/pools", liquidityHandlers.CreatePoolHandler())
			internal.POST("/staking/pools", stakingHandlers.CreatePoolHandler())
		}
	}
}
