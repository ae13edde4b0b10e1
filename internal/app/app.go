package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cbt_backend/internal/config"
	"cbt_backend/internal/controller"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/service"
	"cbt_backend/pkg/database"
	"cbt_backend/pkg/logger"
	"cbt_backend/pkg/monitoring"
	"cbt_backend/pkg/security"
	"cbt_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user          *repository.UserRepository
	class         *repository.ClassRepository
	question      *repository.QuestionRepository
	test          *repository.TestRepository
	session       *repository.SessionRepository
	result        *repository.ResultRepository
	securityEvent *repository.SecurityEventRepository
	auditLog      *repository.AuditLogRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	class        *service.ClassService
	question     *service.QuestionService
	test         *service.TestService
	session      *service.SessionService
	result       *service.ResultService
	grader       *service.GraderService
	security     *service.SecurityService
	audit        *service.AuditService
	notification *service.NotificationService
	storage      *service.StorageService
}

type controllers struct {
	auth     *controller.AuthController
	user     *controller.UserController
	class    *controller.ClassController
	question *controller.QuestionController
	test     *controller.TestController
	session  *controller.SessionController
	result   *controller.ResultController
	security *controller.SecurityController
	audit    *controller.AuditController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		class:         repository.NewClassRepository(db),
		question:      repository.NewQuestionRepository(db),
		test:          repository.NewTestRepository(db),
		session:       repository.NewSessionRepository(db),
		result:        repository.NewResultRepository(db),
		securityEvent: repository.NewSecurityEventRepository(db),
		auditLog:      repository.NewAuditLogRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	clock := service.SystemClock()

	var cache service.Cache
	if rdb != nil {
		cache = service.NewRedisCache(rdb)
	} else {
		cache = service.NewNoopCache()
	}

	s.notification = service.NewNotificationService(cfg.SMTP)
	s.storage = service.NewStorageService(cfg)

	s.auth = service.NewAuthService(repos.user, cfg, clock)
	s.user = service.NewUserService(repos.user, clock)
	s.class = service.NewClassService(repos.class, repos.user)
	s.question = service.NewQuestionService(repos.question)
	s.test = service.NewTestService(repos.test, repos.question, repos.class, repos.user, s.notification, clock)
	s.session = service.NewSessionService(repos.session, repos.test, clock)
	s.result = service.NewResultService(repos.result, repos.session, repos.test, repos.user, s.notification, cache, clock)
	s.grader = service.NewGraderService(cfg.Grader, repos.session, repos.test)
	s.security = service.NewSecurityService(repos.securityEvent, repos.session, clock)
	s.audit = service.NewAuditService(repos.auditLog)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		user:     controller.NewUserController(s.user),
		class:    controller.NewClassController(s.class, s.audit),
		question: controller.NewQuestionController(s.question, s.storage),
		test:     controller.NewTestController(s.test, s.session, s.audit),
		session:  controller.NewSessionController(s.session, s.result, s.grader, s.security, s.test),
		result:   controller.NewResultController(s.result, s.audit),
		security: controller.NewSecurityController(s.security),
		audit:    controller.NewAuditController(s.audit),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Redis is optional: without it result caching degrades to direct reads.
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()
	monitoring.RegisterActiveSessions(repos.session.CountActive)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("cbt-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
