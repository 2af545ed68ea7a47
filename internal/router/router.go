package router

import (
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/config"
	"github.com/ledropshop/wa-drops-backend/internal/handlers"
	"github.com/ledropshop/wa-drops-backend/internal/middleware"
	"github.com/ledropshop/wa-drops-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin router with the drop dispatch routes
func SetupRouter(
	db *gorm.DB,
	rabbitMQService *services.RabbitMQService,
	dispatchService *services.DispatchService,
	gateway *services.WhatsAppService,
	clock services.Clock,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create middleware with services
	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(config.GetAuthConfig())

	// Create handlers with services
	dropHandler := handlers.NewDropHandler(db, dispatchService, rabbitMQService, clock)
	articleHandler := handlers.NewArticleHandler(db)
	groupHandler := handlers.NewGroupHandler(db, gateway)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logrus.Info("Swagger UI endpoint registered at /swagger/index.html")

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		// Protected routes
		protected := api.Group("")
		protected.Use(bearerTokenMiddleware.BearerTokenAuthMiddleware())
		{
			// Drop routes
			drops := protected.Group("/drops")
			{
				drops.POST("", dropHandler.CreateDrop)
				drops.GET("", dropHandler.GetDrops)
				drops.GET("/:id", dropHandler.GetDropByID)
				drops.PUT("/:id", dropHandler.UpdateDrop)
				drops.DELETE("/:id", dropHandler.DeleteDrop)
				drops.GET("/:id/validate", dropHandler.ValidateDrop)
				drops.POST("/:id/send", dropHandler.SendDrop)
				drops.GET("/:id/progress", dropHandler.GetDropProgress)
				drops.POST("/:id/cancel", dropHandler.CancelDrop)
				drops.GET("/:id/history", dropHandler.GetDropHistory)
				drops.GET("/:id/history/export", dropHandler.ExportDropHistory)
			}

			// Article routes (catalog read model)
			articles := protected.Group("/articles")
			{
				articles.GET("", articleHandler.GetArticles)
				articles.GET("/:id", articleHandler.GetArticleByID)
			}

			// WhatsApp group routes
			groups := protected.Group("/groups")
			{
				groups.GET("", groupHandler.GetGroups)
				groups.GET("/:id", groupHandler.GetGroupByID)
				groups.POST("/sync", groupHandler.SyncGroups)
			}
		}
	}

	return r
}
