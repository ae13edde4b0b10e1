package app

import (
	"cbt_backend/internal/config"
	"cbt_backend/internal/middleware"
	"cbt_backend/internal/model"
	"cbt_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(s.user))
	{
		a.registerCommonRoutes(authGroup, c)
		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

// Common routes serve any authenticated role. Controllers scope what a
// student may see of sessions and results.
func (a *App) registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)
	rg.POST("/auth/change-password", c.auth.ChangePassword)

	rg.GET("/sessions", c.session.ListMySessions)
	rg.GET("/sessions/:id", c.session.GetSession)
	rg.GET("/sessions/:id/time", c.session.GetTimeRemaining)

	rg.GET("/results", c.result.ListMyResults)
	rg.GET("/results/performance", c.result.GetMyPerformance)
	rg.GET("/results/:id", c.result.GetResult)
	rg.GET("/results/:id/comparison", c.result.GetComparison)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.GET("/tests/available", c.test.ListAvailable)
		student.POST("/tests/:id/sessions", c.session.StartSession)

		student.PUT("/sessions/:id/answers", c.session.SaveAnswer)
		student.PUT("/sessions/:id/progress", c.session.MarkProgress)
		student.POST("/sessions/:id/submit", c.session.Submit)
		student.POST("/sessions/:id/events", c.session.ReportEvent)
	}
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/tests", c.test.CreateTest)
		instructor.GET("/tests", c.test.ListTests)
		instructor.GET("/tests/:id", c.test.GetTest)
		instructor.PUT("/tests/:id", c.test.UpdateTest)
		instructor.DELETE("/tests/:id", c.test.DeleteTest)
		instructor.PUT("/tests/:id/questions", c.test.SetQuestions)
		instructor.POST("/tests/:id/publish", c.test.Publish)
		instructor.POST("/tests/:id/archive", c.test.Archive)
		instructor.POST("/tests/:id/classes", c.test.AssignClass)
		instructor.DELETE("/tests/:id/classes/:classId", c.test.UnassignClass)
		instructor.GET("/tests/:id/sessions", c.test.ActiveSessions)
		instructor.GET("/tests/:id/results", c.result.ListByTest)
		instructor.GET("/tests/:id/statistics", c.result.GetStatistics)
		instructor.GET("/tests/:id/results/export", c.result.ExportCSV)
		instructor.GET("/tests/:id/security-events", c.security.TestEvents)

		instructor.POST("/questions", c.question.CreateQuestion)
		instructor.GET("/questions", c.question.ListQuestions)
		instructor.GET("/questions/:id", c.question.GetQuestion)
		instructor.PUT("/questions/:id", c.question.UpdateQuestion)
		instructor.DELETE("/questions/:id", c.question.DeleteQuestion)
		instructor.GET("/questions/:id/versions", c.question.GetVersions)
		instructor.POST("/questions/upload-image", c.question.UploadImage)

		instructor.POST("/classes", c.class.CreateClass)
		instructor.GET("/classes", c.class.ListClasses)
		instructor.GET("/classes/:id", c.class.GetClass)
		instructor.PUT("/classes/:id", c.class.UpdateClass)
		instructor.DELETE("/classes/:id", c.class.DeleteClass)
		instructor.POST("/classes/:id/students", c.class.Enroll)
		instructor.DELETE("/classes/:id/students/:studentId", c.class.Unenroll)

		instructor.POST("/sessions/:id/complete", c.session.Complete)
		instructor.POST("/sessions/:id/extend", c.session.Extend)
		instructor.GET("/sessions/:id/events", c.security.SessionEvents)

		instructor.GET("/students/:id/performance", c.result.GetStudentPerformance)
		instructor.POST("/results/:id/publish", c.result.Publish)
		instructor.POST("/results/:id/feedback", c.result.AddFeedback)
		instructor.POST("/security-events/:id/resolve", c.security.ResolveEvent)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.GET("/users/:id", c.user.GetUser)
		admin.PUT("/users/:id/role", c.user.SetRole)
		admin.PUT("/users/:id/disabled", c.user.SetDisabled)
		admin.GET("/audit-logs", c.audit.List)
	}
}
