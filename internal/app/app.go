package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "partnerpipeline/docs"
	"partnerpipeline/internal/config"
	"partnerpipeline/internal/handlers"
	"partnerpipeline/internal/pdf"
	"partnerpipeline/internal/realtime"
	"partnerpipeline/internal/repositories"
	"partnerpipeline/internal/routes"
	"partnerpipeline/internal/services"
)

// Build wires the router from cfg. Exposed separately from Run for tests.
func Build(cfg *config.Config, log *logrus.Logger) (*gin.Engine, error) {
	// === Pipeline ===
	catalog, err := services.NewStageCatalog(services.ApplyBenchmarks(services.DefaultStages(), cfg.Pipeline.Benchmarks))
	if err != nil {
		return nil, err
	}
	resolver := services.NewCommissionResolver(cfg.Commission.Rates)
	engine := services.NewEngine(catalog, resolver)

	// === Repos / Services ===
	repo := repositories.NewMemoryOpportunityRepository()
	opportunityService := services.NewOpportunityService(repo, engine, log)
	opportunityService.SetCurrency(cfg.Pipeline.Currency)

	hub := realtime.NewBoardHub(opportunityService, log, cfg.Board.AllowedOrigins,
		time.Duration(cfg.Board.WriteTimeoutSeconds)*time.Second)
	opportunityService.SetPublisher(hub)

	// PDF генератор; без TTF откатывается на Helvetica
	pdfGen := pdf.NewForecastGenerator(cfg.Report.FontPath, cfg.Report.Company)

	// === Handlers ===
	opportunityHandler := handlers.NewOpportunityHandler(opportunityService, log)
	reportHandler := handlers.NewReportHandler(opportunityService, pdfGen, cfg.Report.Title, log)
	commissionHandler := handlers.NewCommissionHandler(resolver, cfg.Commission.Agreements)
	boardHandler := handlers.NewBoardHandler(hub, opportunityService)

	// === Gin ===
	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, opportunityHandler, reportHandler, commissionHandler, boardHandler)
	return router, nil
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("[config][err]")
	}
	log := config.NewLogger(cfg.Log.Level)

	router, err := Build(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("[app][build][err]")
	}

	// === Run ===
	listenAddr := cfg.Addr()
	log.WithField("addr", listenAddr).Info("[app] server started")
	if err := router.Run(listenAddr); err != nil {
		log.WithError(err).Fatal("[app][run][err]")
	}
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("[http]")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, X-User-ID, X-Role-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
