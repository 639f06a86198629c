package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/diogopelaes/cemep-digital/api/swagger"
	"github.com/diogopelaes/cemep-digital/internal/authz"
	"github.com/diogopelaes/cemep-digital/internal/handler"
	"github.com/diogopelaes/cemep-digital/internal/middleware"
	"github.com/diogopelaes/cemep-digital/internal/repository"
	"github.com/diogopelaes/cemep-digital/internal/service"
	"github.com/diogopelaes/cemep-digital/pkg/cache"
	"github.com/diogopelaes/cemep-digital/pkg/config"
	"github.com/diogopelaes/cemep-digital/pkg/database"
	"github.com/diogopelaes/cemep-digital/pkg/jobs"
	"github.com/diogopelaes/cemep-digital/pkg/logger"
	corsmiddleware "github.com/diogopelaes/cemep-digital/pkg/middleware/cors"
	reqidmiddleware "github.com/diogopelaes/cemep-digital/pkg/middleware/requestid"
)

// @title CEMEP Digital API
// @version 1.0.0
// @description School administration core: catalog, timetabling and schedule snapshots
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	cacheEnabled := cfg.Schedule.CacheEnabled
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
		cacheEnabled = false
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Schedule.CacheTTL, logr, cacheEnabled)

	userRepo := repository.NewUserRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	subjectSectionRepo := repository.NewSubjectSectionRepository(db)
	teacherSectionRepo := repository.NewTeacherSectionRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	var rebuildQueue *jobs.KeyedQueue
	if cfg.Schedule.RebuildAsync {
		rebuildQueue = jobs.NewKeyedQueue(jobs.KeyedQueueConfig{
			Workers: cfg.Schedule.RebuildWorkers,
			Logger:  logr,
		})
		rebuildQueue.Start(ctx)
		defer rebuildQueue.Stop()
	}

	rebuilds := service.NewScheduleRebuildService(
		timetableRepo,
		teacherSectionRepo,
		sectionRepo,
		staffRepo,
		cacheService,
		metricsService,
		rebuildQueue,
		logr,
	)

	validate := validator.New()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   cfg.JWT.ResetExpiration,
		Issuer:             "cemep-digital",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	sectionService := service.NewSectionService(sectionRepo, validate, logr)
	staffService := service.NewStaffService(staffRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	subjectSectionService := service.NewSubjectSectionService(subjectSectionRepo, sectionRepo, subjectRepo, rebuilds, validate, logr)
	teacherSectionService := service.NewTeacherSectionService(teacherSectionRepo, subjectSectionRepo, staffRepo, rebuilds, validate, logr)
	timetableService := service.NewTimetableService(timetableRepo, sectionRepo, subjectRepo, rebuilds, validate, logr)
	scheduleService := service.NewScheduleService(sectionRepo, staffRepo, cacheService, cfg.Schedule.CacheTTL, logr)

	policies := authz.DefaultPolicies()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, policies[authz.ResourceUsers])
	sectionHandler := handler.NewSectionHandler(sectionService)
	staffHandler := handler.NewStaffHandler(staffService, teacherSectionService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	subjectSectionHandler := handler.NewSubjectSectionHandler(subjectSectionService)
	teacherSectionHandler := handler.NewTeacherSectionHandler(teacherSectionService)
	timetableHandler := handler.NewTimetableHandler(timetableService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, policies[authz.ResourceStaffSchedule])
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/change-password", authHandler.ChangePassword)
		protected.GET("/auth/me", authHandler.Me)

		users := policies[authz.ResourceUsers]
		protected.GET("/users", middleware.Authorize(users, "list"), userHandler.List)
		protected.GET("/users/:id", middleware.Authorize(users, "retrieve"), userHandler.Get)
		protected.POST("/users", middleware.Authorize(users, "create"), userHandler.Create)
		protected.PUT("/users/:id", middleware.Authorize(users, "update"), userHandler.Update)
		protected.DELETE("/users/:id", middleware.Authorize(users, "destroy"), userHandler.Delete)

		sections := policies[authz.ResourceSections]
		protected.GET("/sections", middleware.Authorize(sections, "list"), sectionHandler.List)
		protected.GET("/sections/:id", middleware.Authorize(sections, "retrieve"), sectionHandler.Get)
		protected.POST("/sections", middleware.Authorize(sections, "create"), sectionHandler.Create)
		protected.PUT("/sections/:id", middleware.Authorize(sections, "update"), sectionHandler.Update)

		staff := policies[authz.ResourceStaff]
		protected.GET("/staff", middleware.Authorize(staff, "list"), staffHandler.List)
		protected.GET("/staff/:id", middleware.Authorize(staff, "retrieve"), staffHandler.Get)
		protected.POST("/staff", middleware.Authorize(staff, "create"), staffHandler.Create)
		protected.PUT("/staff/:id", middleware.Authorize(staff, "update"), staffHandler.Update)

		subjects := policies[authz.ResourceSubjects]
		protected.GET("/subjects", middleware.Authorize(subjects, "list"), subjectHandler.List)
		protected.GET("/subjects/:id", middleware.Authorize(subjects, "retrieve"), subjectHandler.Get)
		protected.POST("/subjects", middleware.Authorize(subjects, "create"), subjectHandler.Create)
		protected.PUT("/subjects/:id", middleware.Authorize(subjects, "update"), subjectHandler.Update)
		protected.DELETE("/subjects/:id", middleware.Authorize(subjects, "destroy"), subjectHandler.Delete)

		subjectSections := policies[authz.ResourceSubjectSections]
		protected.GET("/sections/:id/subjects", middleware.Authorize(subjectSections, "list"), subjectSectionHandler.ListBySection)
		protected.POST("/subject-sections", middleware.Authorize(subjectSections, "create"), middleware.Audit(userRepo, "create", "subject_sections"), subjectSectionHandler.Create)
		protected.DELETE("/subject-sections/:id", middleware.Authorize(subjectSections, "destroy"), middleware.Audit(userRepo, "destroy", "subject_sections"), subjectSectionHandler.Delete)

		teacherSections := policies[authz.ResourceTeacherSections]
		protected.GET("/sections/:id/teachers", middleware.Authorize(teacherSections, "list"), teacherSectionHandler.ListBySection)
		protected.GET("/staff/:id/assignments", middleware.Authorize(teacherSections, "list"), staffHandler.Assignments)
		protected.POST("/teacher-sections", middleware.Authorize(teacherSections, "create"), middleware.Audit(userRepo, "create", "teacher_sections"), teacherSectionHandler.Create)
		protected.DELETE("/teacher-sections/:id", middleware.Authorize(teacherSections, "destroy"), middleware.Audit(userRepo, "destroy", "teacher_sections"), teacherSectionHandler.Delete)

		timetables := policies[authz.ResourceTimetables]
		protected.GET("/sections/:id/windows", middleware.Authorize(timetables, "list"), timetableHandler.ListWindows)
		protected.POST("/windows", middleware.Authorize(timetables, "create"), middleware.Audit(userRepo, "create", "validity_windows"), timetableHandler.CreateWindow)
		protected.PUT("/windows/:id", middleware.Authorize(timetables, "update"), middleware.Audit(userRepo, "update", "validity_windows"), timetableHandler.UpdateWindow)
		protected.DELETE("/windows/:id", middleware.Authorize(timetables, "destroy"), middleware.Audit(userRepo, "destroy", "validity_windows"), timetableHandler.DeleteWindow)
		protected.GET("/windows/:id/slots", middleware.Authorize(timetables, "list"), timetableHandler.ListSlots)
		protected.POST("/slots", middleware.Authorize(timetables, "create"), middleware.Audit(userRepo, "create", "grid_slots"), timetableHandler.CreateSlot)
		protected.PUT("/slots/:id", middleware.Authorize(timetables, "update"), middleware.Audit(userRepo, "update", "grid_slots"), timetableHandler.UpdateSlot)
		protected.DELETE("/slots/:id", middleware.Authorize(timetables, "destroy"), middleware.Audit(userRepo, "destroy", "grid_slots"), timetableHandler.DeleteSlot)

		sectionSchedules := policies[authz.ResourceSectionSchedule]
		protected.GET("/sections/:id/schedule", middleware.Authorize(sectionSchedules, "retrieve"), scheduleHandler.GetSectionSchedule)
		protected.GET("/sections/:id/schedule/export", middleware.Authorize(sectionSchedules, authz.ActionExport), scheduleHandler.ExportSectionSchedule)

		staffSchedules := policies[authz.ResourceStaffSchedule]
		protected.GET("/staff/:id/schedule", middleware.Authorize(staffSchedules, "retrieve"), scheduleHandler.GetStaffSchedule)
		protected.GET("/staff/:id/schedule/export", middleware.Authorize(staffSchedules, authz.ActionExport), scheduleHandler.ExportStaffSchedule)

		protected.GET("/system/metrics", middleware.Authorize(policies[authz.ResourceSystem], "retrieve"), metricsHandler.Summary)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
