package app

import (
	"edu_portal_backend/docs"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/middleware"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	assessments := group.Group("/assessments")
	{
		assessments.GET("/:id", c.assessment.GetAssessment)
		assessments.GET("/:id/questions", c.assessment.GetQuestions)
		assessments.GET("/:id/eligibility", c.assessment.GetEligibility)
		assessments.POST("/:id/attempts", c.attempt.StartAttempt)
		assessments.GET("/:id/attempts/current", c.attempt.GetCurrentAttempt)
	}

	attempts := group.Group("/attempts")
	{
		// 静态路径先于 /:id 注册
		attempts.GET("/live", c.live.Connect)
		attempts.GET("/:id", c.attempt.GetAttempt)
		attempts.GET("/:id/answers", c.attempt.ListAnswers)
		attempts.PUT("/:id/answers/:questionId", c.attempt.SaveAnswer)
		attempts.POST("/:id/submit", c.attempt.SubmitAttempt)
		attempts.POST("/:id/abandon", c.attempt.AbandonAttempt)
		attempts.GET("/:id/review", c.attempt.Review)
	}

	group.POST("/enrollments/:id/report", c.report.GenerateReport)
	group.GET("/reports/:id", c.report.GetReport)
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		teacher.POST("/assessments", c.assessment.CreateAssessment)
		teacher.POST("/attempts/:id/answers/:questionId/grade", c.attempt.GradeAnswer)
		teacher.POST("/reports/:id/certificate", c.report.IssueCertificate)
	}
}
