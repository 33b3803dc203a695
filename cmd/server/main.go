package main

import (
	"alcyxob/routine-planner/internal/advisor"
	"alcyxob/routine-planner/internal/api"
	"alcyxob/routine-planner/internal/clock"
	"alcyxob/routine-planner/internal/config"
	"alcyxob/routine-planner/internal/lock"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/metrics"
	"alcyxob/routine-planner/internal/repository/mongo"
	"alcyxob/routine-planner/internal/scheduler"
	"alcyxob/routine-planner/internal/service"
	"alcyxob/routine-planner/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Routine Planner API
// @version 1.0
// @description Weekly training routines, adaptive plan repair and daily period renewal.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting Routine Planner server...", "address", cfg.Server.Address, "timezone", cfg.Schedule.Timezone)

	loc, err := cfg.Schedule.Location()
	if err != nil {
		log.Fatal("invalid schedule timezone", "error", err)
	}
	clk := clock.System{Location: loc}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal("could not connect to MongoDB", "error", err)
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), time.Minute)
	err = mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndex()
	if err != nil {
		log.Fatal("could not create indexes", "error", err)
	}

	// --- Initialize Repositories ---
	txn := mongo.NewMongoTransactor(dbClient)
	userRepo := mongo.NewMongoUserRepository(appDB)
	periodRepo := mongo.NewMongoPeriodRepository(appDB)
	dayRepo := mongo.NewMongoScheduledDayRepository(appDB)
	reportRepo := mongo.NewMongoFailureReportRepository(appDB)
	planRepo := mongo.NewMongoTrainingPlanRepository(appDB)
	snapshotRepo := mongo.NewMongoPlanSnapshotRepository(appDB)

	// --- Plan Lock ---
	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		redisLocker, err := lock.NewRedisLocker(cfg.Redis, log)
		if err != nil {
			log.Fatal("could not connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else {
		log.Warn("redis.addr not set; plan lock is process-local")
		locker = lock.NewMemoryLocker()
	}

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage // nil disables plan archiving
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(cfg.S3, log)
		if err != nil {
			log.Fatal("failed to initialize S3 storage", "error", err)
		}
	} else {
		log.Warn("s3.bucket_name not set; plan versions are not archived")
	}

	// --- External Advisors ---
	var adv advisor.Advisor
	if cfg.Advisor.APIKey != "" {
		adv = advisor.NewAdvisor(advisor.NewChatClient(cfg.Advisor), log)
	} else {
		log.Warn("advisor.api_key not set; only lack_of_time repairs are possible")
	}
	var generator advisor.PlanGenerator
	if cfg.Generator.APIKey != "" {
		generator = advisor.NewPlanGenerator(advisor.NewChatClient(cfg.Generator), log)
	} else {
		log.Warn("generator.api_key not set; renewals keep the existing plan")
	}

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	if cfg.Admin.Email != "" {
		adminCtx, cancelAdmin := context.WithTimeout(context.Background(), 10*time.Second)
		err = authService.EnsureAdmin(adminCtx, cfg.Admin.Email, cfg.Admin.Password)
		cancelAdmin()
		if err != nil {
			log.Fatal("could not create bootstrap admin", "error", err)
		}
	}
	archiver := service.NewPlanArchiver(snapshotRepo, fileStorage, log)
	routineService := service.NewRoutineService(txn, periodRepo, dayRepo, clk, log)
	planService := service.NewPlanService(planRepo, snapshotRepo, fileStorage, log)
	rescheduleService := service.NewRescheduleService(txn, reportRepo, dayRepo, planRepo, adv, archiver, locker, clk,
		service.RescheduleConfig{
			LockTTL:        cfg.Redis.LockTTL,
			LockWait:       10 * time.Second,
			AdvisorTimeout: cfg.Advisor.Timeout,
		}, log)
	renewalJob := service.NewRenewalJob(txn, periodRepo, dayRepo, userRepo, planRepo, generator, archiver, locker, clk,
		service.RenewalJobConfig{
			Concurrency: cfg.Schedule.RenewalConcurrency,
			TaskTimeout: cfg.Schedule.RenewalTaskTimeout,
			LockTTL:     cfg.Redis.LockTTL,
		}, log)

	// --- Daily Renewal ---
	cronScheduler, err := scheduler.New(cfg.Schedule.RenewalCron, loc, renewalJob, log)
	if err != nil {
		log.Fatal("invalid renewal schedule", "spec", cfg.Schedule.RenewalCron, "error", err)
	}
	cronScheduler.Start()

	// --- Initialize Gin Engine ---
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log), metrics.GinMiddleware())

	api.SetupRoutes(router, cfg.JWT.Secret, api.Services{
		Auth:       authService,
		Routines:   routineService,
		Reschedule: rescheduleService,
		Plans:      planService,
		Renewals:   renewalJob,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
		// Repairs wait on the advisor and admin renewals on the generator.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	cronScheduler.Stop()

	log.Info("Server exiting.")
}
