package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"partnerpipeline/internal/authz"
	"partnerpipeline/internal/handlers"
	"partnerpipeline/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	opportunityHandler *handlers.OpportunityHandler,
	reportHandler *handlers.ReportHandler,
	commissionHandler *handlers.CommissionHandler,
	boardHandler *handlers.BoardHandler, // может быть nil, если доска выключена
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// ---- protected
	r.Use(middleware.Identity())
	r.Use(middleware.ReadOnlyGuard())

	// OPPORTUNITIES
	opps := r.Group("/opportunities", middleware.RequireAction(authz.ActionView))
	{
		opps.POST("", middleware.RequireAction(authz.ActionEdit), opportunityHandler.Create)
		opps.GET("", opportunityHandler.List)
		opps.GET("/:id", opportunityHandler.GetByID)
		opps.PUT("/:id", middleware.RequireAction(authz.ActionEdit), opportunityHandler.Update)

		opps.POST("/:id/stage/validate", opportunityHandler.ValidateStage)
		opps.PATCH("/:id/stage", middleware.RequireAction(authz.ActionMoveStage), opportunityHandler.MoveStage)

		opps.POST("/:id/notes", middleware.RequireAction(authz.ActionEdit), opportunityHandler.AddNote)
		opps.POST("/:id/hold", middleware.RequireAction(authz.ActionEdit), opportunityHandler.Hold)
		opps.POST("/:id/resume", middleware.RequireAction(authz.ActionEdit), opportunityHandler.Resume)
	}

	// PIPELINE
	r.GET("/pipeline/stages", middleware.RequireAction(authz.ActionView), reportHandler.Stages)

	// FORECAST (operations / audit / management / admin)
	forecast := r.Group("/forecast", middleware.RequireAction(authz.ActionViewForecast))
	{
		forecast.GET("", reportHandler.GetForecast)
		forecast.GET("/report.pdf", reportHandler.ExportPDF)
	}

	// COMMISSION
	r.POST("/commission/resolve", middleware.RequireAction(authz.ActionView), commissionHandler.Resolve)

	// BOARD
	if boardHandler != nil {
		r.GET("/board/ws", middleware.RequireAction(authz.ActionMoveStage), boardHandler.Connect)
	}

	return r
}
