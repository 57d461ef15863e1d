package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "recon-engine/docs"
	"recon-engine/internal/config"
	"recon-engine/internal/handler"
	"recon-engine/internal/ingestion"
	"recon-engine/internal/middleware"
	"recon-engine/internal/postgres"
	"recon-engine/internal/reconciler"
	"recon-engine/internal/reporting"
	"recon-engine/pkg/logger"
)

// @title Transaction Reconciliation API
// @version 1.0
// @description API for reconciling transactions against bank settlements and adjustments
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@recon-engine.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.GetLogger().Info("Starting Transaction Reconciliation Service")

	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.GetLogger().Info("Database connection established")

	store := postgres.New(db)

	reconcilerSvc := reconciler.New(store, cfg.Matching)
	reportingSvc := reporting.New(store, cfg.Matching, time.Now)
	ingestionSvc := ingestion.New(store)

	reconcileHandler := handler.NewReconcileHandler(reconcilerSvc, reportingSvc)
	discrepancyHandler := handler.NewDiscrepancyHandler(reportingSvc)
	matchHandler := handler.NewMatchHandler(store)
	ingestHandler := handler.NewIngestHandler(ingestionSvc)

	router := setupRouter(reconcileHandler, discrepancyHandler, matchHandler, ingestHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}

func connectDB(cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func setupRouter(
	reconcileHandler *handler.ReconcileHandler,
	discrepancyHandler *handler.DiscrepancyHandler,
	matchHandler *handler.MatchHandler,
	ingestHandler *handler.IngestHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		reconcile := v1.Group("/reconcile")
		{
			reconcile.POST("", reconcileHandler.Reconcile)
			reconcile.GET("/status", reconcileHandler.Status)
		}

		discrepancies := v1.Group("/discrepancies")
		{
			discrepancies.GET("", discrepancyHandler.List)
			discrepancies.GET("/summary", discrepancyHandler.Summary)
		}

		matches := v1.Group("/matches")
		{
			matches.GET("", matchHandler.List)
			matches.GET("/:transaction_id", matchHandler.GetByTransaction)
		}

		ingest := v1.Group("/ingest")
		{
			ingest.POST("/transactions", ingestHandler.IngestTransactions)
			ingest.POST("/settlements", ingestHandler.IngestSettlements)
			ingest.POST("/adjustments", ingestHandler.IngestAdjustments)
		}
	}

	return router
}
