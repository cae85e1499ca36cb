package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepai/prepai-go-api/internal/config"
	"github.com/prepai/prepai-go-api/internal/database"
	"github.com/prepai/prepai-go-api/internal/handler"
	"github.com/prepai/prepai-go-api/internal/middleware"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/observability"
	"github.com/prepai/prepai-go-api/internal/repository"
	"github.com/prepai/prepai-go-api/internal/router"
	"github.com/prepai/prepai-go-api/internal/service"
	"github.com/prepai/prepai-go-api/internal/worker"
	"github.com/prepai/prepai-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Interview{}, &models.Question{}, &models.Answer{}, &models.Evaluation{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, report caching disabled")
	}

	var openAIClient *ai.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openAIClient, err = ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.AssessorTimeout,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai client: %v", err)
		}
	} else {
		logger.Warn().Msg("openai api key not set, evaluations will fail until configured")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	pool := worker.NewPool(cfg.EvalWorkers, logger)
	defer pool.Stop()

	userRepo := repository.NewUserRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	var assessor ai.Assessor
	var generator ai.Generator
	if openAIClient != nil {
		assessor = openAIClient
		generator = openAIClient
	}

	authService := service.NewAuthService(userRepo, validate, logger, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
	})
	interviewService := service.NewInterviewService(interviewRepo, generator, validate, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, answerRepo, assessor, pool, logger, service.RetryPolicy{
		MaxAttempts: cfg.EvalMaxAttempts,
		BaseDelay:   cfg.EvalRetryBaseDelay,
		MaxDelay:    30 * time.Second,
	})
	answerService := service.NewAnswerService(answerRepo, interviewRepo, questionRepo, evaluationService, validate, logger, service.AnswerConfig{
		MinLength: cfg.AnswerMinLength,
	})
	reportService := service.NewReportService(interviewRepo, redisClient, cfg.ReportCacheTTL, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	interviewHandler := handler.NewInterviewHandler(interviewService, logger)
	answerHandler := handler.NewAnswerHandler(answerService, evaluationService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      authHandler,
		InterviewHandler: interviewHandler,
		AnswerHandler:    answerHandler,
		ReportHandler:    reportHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:    middleware.RateLimit("answers", cfg.SubmitRateLimit, cfg.SubmitRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
