package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-admin-api/api/swagger"
	"github.com/noah-isme/school-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/cache"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/jobs"
	"github.com/noah-isme/school-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-admin-api/pkg/scheduler"
)

// @title School Admin API
// @version 1.0.0
// @description People, course catalog and enrollment workflow for a school office.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache, logr)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	var cacheClient redis.UniversalClient
	if redisClient != nil {
		defer redisClient.Close()
		cacheClient = redisClient
	}

	metrics := service.NewMetricsService()

	personRepo := repository.NewPersonRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(cacheClient, "school-admin")

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.CourseTTL, logr, cfg.Cache.Enabled)
	personSvc := service.NewPersonService(personRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, cacheSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Repo:     enrollmentRepo,
		People:   personRepo,
		Courses:  courseRepo,
		Tx:       db,
		Metrics:  metrics,
		Logger:   logr,
		Location: cfg.School.Location,
	})
	overdueSvc := service.NewOverdueService(enrollmentRepo, metrics, logr, nil, cfg.School.Location)

	if cfg.OverdueSweep.Enabled {
		sched, queue, err := startOverdueSweep(ctx, cfg.OverdueSweep, cfg.School.Location, overdueSvc, logr)
		if err != nil {
			logr.Fatal("failed to schedule overdue sweep", zap.Error(err))
		}
		defer queue.Stop()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logr.Warn("scheduler stop timed out", zap.Error(err))
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	ops := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var guards []gin.HandlerFunc
	if cfg.JWT.Enabled {
		tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiration: cfg.JWT.Expiration})
		guards = append(guards, internalmiddleware.JWT(tokens), internalmiddleware.RequireRoles(models.RoleAdmin))
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		People:      handler.NewPersonHandler(personSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
	}, guards...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("auth", cfg.JWT.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// startOverdueSweep runs the sweep through a single-worker queue fed by cron.
// A tick that finds the previous sweep still queued is dropped.
func startOverdueSweep(ctx context.Context, cfg config.OverdueSweepConfig, loc *time.Location, overdue *service.OverdueService, logr *zap.Logger) (*scheduler.Scheduler, *jobs.Queue, error) {
	queue := jobs.NewQueue("overdue", overdue.HandleJob, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: cfg.Retries,
		RetryDelay: 30 * time.Second,
		JobTimeout: cfg.Timeout,
		Logger:     logr,
	})
	queue.Start(ctx)

	sched := scheduler.New(loc, logr)
	err := sched.Add(service.OverdueSweepJob, cfg.Cron, func() {
		if err := queue.TryEnqueue(jobs.Job{Type: service.OverdueSweepJob}); err != nil {
			logr.Warn("overdue sweep skipped", zap.Error(err))
		}
	})
	if err != nil {
		queue.Stop()
		return nil, nil, err
	}
	sched.Start()
	return sched, queue, nil
}
