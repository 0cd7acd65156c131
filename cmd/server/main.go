package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interview-backend/internal/config"
	"interview-backend/internal/database"
	"interview-backend/internal/handlers"
	"interview-backend/internal/interview"
	"interview-backend/internal/middleware"
	"interview-backend/internal/repository"
	"interview-backend/internal/router"
	"interview-backend/internal/services"
	"interview-backend/internal/storage"
	"interview-backend/internal/websocket"
	"interview-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Interview Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Printf("✓ Environment variables loaded (%s)", cfg.Env)

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	interviewRepo := repository.NewInterviewRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	cvRepo := repository.NewCVRepo(pool)

	// ──── Step 5: Initialize CV Storage ────
	var files storage.FileStore
	switch cfg.StorageType {
	case "gcs":
		gcsStore, err := storage.NewGCSStore(context.Background(), cfg.GCSBucket)
		if err != nil {
			log.Fatalf("✗ Cloud Storage initialization failed: %v", err)
		}
		defer gcsStore.Close()
		files = gcsStore
	default:
		localStore, err := storage.NewLocalStore(cfg.StoragePath)
		if err != nil {
			log.Fatalf("✗ Local storage initialization failed: %v", err)
		}
		files = localStore
	}
	log.Printf("✓ CV storage ready (%s)", files.Type())

	// ──── Step 6: Initialize Feedback Generator ────
	var feedback services.FeedbackGenerator
	if cfg.GeminiAPIKey != "" {
		geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiService.Close()
		feedback = geminiService
		log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	} else {
		log.Println("⚠ GEMINI_API_KEY not set, reports use heuristic feedback")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	publisher := services.NewRedisPublisher(redisClients.Queue)
	queue := services.NewRedisQueue(redisClients.Queue)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	navigator := services.NewReportNavigator(interviewRepo, jobRepo, queue, publisher, cfg.FrontendURL)
	reportService := services.NewReportService(feedback, interviewRepo, cvRepo, userRepo, publisher, emailService)
	cvService := services.NewCVService(cvRepo, files)

	// ──── Step 7: Start Session Manager ────
	manager := interview.NewManager(interview.ManagerConfig{
		TotalDurationSeconds: cfg.InterviewDurationSeconds,
		CompletionDelay:      cfg.CompletionDelay,
		Retention:            cfg.SessionRetention,
		Navigator:            navigator,
		Notifier:             services.NewSessionEvents(publisher),
	})
	manager.StartReaper(time.Minute)
	interviewService := services.NewInterviewService(manager, interviewRepo, publisher, cfg.InterviewDurationSeconds)
	log.Printf("✓ Session manager started (%ds sessions)", cfg.InterviewDurationSeconds)

	// ──── Step 8: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, jobRepo, reportService, queue, publisher, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 9: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 10: Start HTTP Server ────
	startLimiter := middleware.NewRateLimiter(cfg.StartLimitPerMinute, time.Minute)

	r := router.New(
		jwtAuth,
		startLimiter,
		handlers.NewHealthHandler(pool, redisClients.Healthy, manager),
		handlers.NewInterviewHandler(interviewService, cfg.InterviewDurationSeconds),
		handlers.NewCVHandler(cvService),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. Sessions hand off before the worker pool stops, and
	// main waits for all of it before the deferred Postgres/Redis closes run.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		manager.Shutdown()
		startLimiter.Stop()
		wsHub.Close()
		workerPool.Stop()
	}()

	log.Printf("✓ Interview Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone
	log.Println("✓ Shutdown complete")
}
