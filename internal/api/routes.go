package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/api/handlers"
	"github.com/pokebinder/backend/internal/binder"
	"github.com/pokebinder/backend/internal/config"
	"github.com/pokebinder/backend/internal/search"
)

// SetupRouter wires the HTTP surface: search endpoints are public, binder
// endpoints require a bearer token.
func SetupRouter(cfg config.Config, searchService *search.Service, binderService *binder.Service, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(MetricsMiddleware())

	// CORS configuration - allow origins from environment or use defaults
	corsConfig := cors.DefaultConfig()
	if cfg.CORSOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.CORSOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	searchHandler := handlers.NewSearchHandler(searchService, logger)
	binderHandler := handlers.NewBinderHandler(binderService, logger)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", searchHandler.SearchCards)
		}

		sets := api.Group("/sets")
		{
			sets.GET("/search", searchHandler.SearchSets)
		}

		binders := api.Group("/binders")
		binders.Use(AuthMiddleware([]byte(cfg.JWTSecret)))
		{
			binders.POST("", binderHandler.CreateBinder)
			binders.GET("", binderHandler.ListBinders)
			binders.GET("/:id", binderHandler.GetBinder)
			binders.DELETE("/:id", binderHandler.DeleteBinder)
			binders.PUT("/:id/settings", binderHandler.UpdateSettings)

			binders.POST("/:id/pages", binderHandler.AddPage)
			binders.DELETE("/:id/pages/:pageId", binderHandler.DeletePage)
			binders.PUT("/:id/pages", binderHandler.SavePages)

			binders.POST("/:id/cards", binderHandler.AddCards)
			binders.POST("/:id/pile", binderHandler.TransferPile)

			binders.POST("/:id/bulk-box", binderHandler.AddToBulkBox)
			binders.POST("/:id/bulk-box/flush", binderHandler.FlushBulkBox)

			binders.POST("/:id/goals", binderHandler.AddGoal)
			binders.POST("/:id/goals/:goalId/complete", binderHandler.CompleteGoal)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
