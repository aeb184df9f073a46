package app

import (
	"context"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/controller"
	"edu_portal_backend/internal/middleware"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/pkg/configwatcher"
	"edu_portal_backend/pkg/database"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"
	"edu_portal_backend/pkg/security"
	"edu_portal_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	// 后台任务的生命周期
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user       *repository.UserRepository
	assessment *repository.AssessmentRepository
	attempt    *repository.AttemptRepository
	enrollment *repository.EnrollmentRepository
	report     *repository.ReportRepository
}

type services struct {
	storage    *service.StorageService
	assessment *service.AssessmentService
	attempt    *service.AttemptService
	courseAPI  *service.CourseAPIAdapter
	report     *service.ReportService
	liveHub    *service.LiveAttemptHub
}

type controllers struct {
	assessment *controller.AssessmentController
	attempt    *controller.AttemptController
	live       *controller.LiveController
	report     *controller.ReportController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		report:     repository.NewReportRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.assessment = service.NewAssessmentService(repos.assessment)
	s.attempt = service.NewAttemptService(repos.assessment, repos.attempt, repos.enrollment, rdb, cfg.Assessment)
	s.courseAPI = service.NewCourseAPIAdapter(s.attempt)
	s.report = service.NewReportService(repos.report, repos.enrollment, repos.attempt, repos.user, s.storage, cfg.Report)
	s.liveHub = service.NewLiveAttemptHub(s.courseAPI, cfg.Assessment, cfg.CORS.AllowedOrigins)

	// 混合权重支持热更新
	a.RegisterConfigCallback(func(c *config.Config) {
		if err := c.Report.Validate(); err != nil {
			logger.Log.Warn("ignoring invalid report weights", zap.Error(err))
			return
		}
		s.report.SetWeights(c.Report)
		logger.Log.Info("report weights reloaded",
			zap.Float64("module", c.Report.ModuleWeight),
			zap.Float64("quiz", c.Report.QuizWeight),
			zap.Float64("final", c.Report.FinalWeight))
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment, s.attempt),
		attempt:    controller.NewAttemptController(s.attempt),
		live:       controller.NewLiveController(s.liveHub),
		report:     controller.NewReportController(s.report),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 超时未交卷的尝试由服务端评分并标记为 expired
	go func() {
		ticker := time.NewTicker(a.Config.Assessment.ExpirySweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				n, err := s.attempt.ExpireOverdue(a.ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Log.Error("expire overdue attempts", zap.Error(err))
				}
				if n > 0 {
					logger.Log.Info("expired overdue attempts", zap.Int("count", n))
				}
			}
		}
	}()

	if a.ConfigDir == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(a.ctx, a.ConfigDir, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, logger.Named("database"))
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 只承担锁与缓存，不可用时降级运行
	rdb, err := database.InitRedis(&cfg.Redis, logger.Named("redis"))
	if err != nil {
		logger.Log.Warn("Redis unavailable, running without cache and start lock", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = "edu-portal"
		}
		tp, err := tracing.InitTracer(name, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.cancel()

	// 断开实时作答连接，尝试保持 in_progress，可在重连后恢复
	if a.services != nil && a.services.liveHub != nil {
		a.services.liveHub.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
}

// Close 释放追踪、Redis 与数据库连接
func (a *App) Close(ctx context.Context) {
	a.cancel()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}
