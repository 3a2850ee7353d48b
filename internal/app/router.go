package app

import (
	"sectrain_backend/docs"
	"sectrain_backend/internal/config"
	"sectrain_backend/internal/middleware"
	"sectrain_backend/internal/model"
	"sectrain_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		training := authGroup.Group("/training")
		{
			training.POST("/sessions", c.training.StartSession)
			training.GET("/sessions", c.training.GetSessionHistory)
			training.GET("/sessions/active", c.training.GetActiveSession)
			training.POST("/sessions/active/abandon", c.training.AbandonSession)
			training.POST("/sessions/active/remediate", c.training.StartRemediation)
			training.GET("/sessions/:sessionId/modules", c.training.GetModules)
			training.GET("/sessions/:sessionId/modules/:index", c.training.GetModule)
			training.POST("/sessions/:sessionId/modules/:index/content", c.training.GenerateModuleContent)
			training.POST("/sessions/:sessionId/modules/:index/scenario", c.training.StartScenario)
			training.POST("/sessions/:sessionId/modules/:index/scenario/responses", c.training.SubmitScenarioResponse)
			training.POST("/sessions/:sessionId/modules/:index/quiz", c.training.SubmitQuizAnswers)
		}

		evidence := authGroup.Group("/evidence")
		{
			evidence.GET("/:id", c.evidence.Get)
			evidence.GET("/:id/verify", c.evidence.Verify)
			evidence.GET("/sessions/:sessionId", c.evidence.GetBySession)
			evidence.POST("/sessions/:sessionId", middleware.RoleMiddleware(model.Admin), c.evidence.Generate)
		}

		authGroup.GET("/role-profiles", c.roleProfile.List)
		authGroup.GET("/role-profiles/:id", c.roleProfile.Get)

		admin := authGroup.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.POST("/tenants", c.tenant.Create)
			admin.GET("/tenants", c.tenant.List)
			admin.GET("/users", c.auth.ListUsers)
			admin.GET("/tenants/current", c.tenant.Get)
			admin.PUT("/tenants/current/policy", c.tenant.UpdatePolicy)
			admin.PUT("/tenants/current/compliance", c.tenant.UpdateCompliance)

			admin.POST("/role-profiles", c.roleProfile.Create)
			admin.PUT("/role-profiles/:id", c.roleProfile.Update)

			admin.POST("/compliance/evidence/:id/dispatch", c.compliance.Dispatch)
			admin.GET("/compliance/sessions/:sessionId", c.compliance.GetBySession)

			admin.GET("/training/sessions/:sessionId/audit", c.training.GetSessionAudit)
		}
	}
}
