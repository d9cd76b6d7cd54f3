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
	"github.com/rs/zerolog"

	"github.com/noor-academy/manhaj-api/internal/config"
	"github.com/noor-academy/manhaj-api/internal/database"
	"github.com/noor-academy/manhaj-api/internal/handler"
	"github.com/noor-academy/manhaj-api/internal/middleware"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
	"github.com/noor-academy/manhaj-api/internal/router"
	"github.com/noor-academy/manhaj-api/internal/service"
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

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Program{},
		&models.Semester{},
		&models.Lesson{},
		&models.Exam{},
		&models.Question{},
		&models.ExamResult{},
		&models.ExamAnswer{},
		&models.RetakeRequest{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Post{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if err := database.EnsureIndexes(db); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewExamResultRepository(db)
	retakeRepo := repository.NewRetakeRepository(db)
	programRepo := repository.NewProgramRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	postRepo := repository.NewPostRepository(db)

	events := service.NewEventPublisher(natsConn, cfg.EventSubjectBase, logger)

	progressionService := service.NewProgressionService(programRepo, enrollmentRepo, examRepo, resultRepo, redisClient, cfg.ProgressCacheTTL, events, logger)
	examService := service.NewExamService(examRepo, resultRepo, validate, events, progressionService, logger)
	retakeService := service.NewRetakeService(retakeRepo, resultRepo, examRepo, validate, events, logger)
	catalogService := service.NewCatalogService(courseRepo, programRepo, validate, logger)
	postService := service.NewPostService(postRepo, validate, logger)

	examHandler := handler.NewExamHandler(examService, logger)
	retakeHandler := handler.NewRetakeHandler(retakeService, logger)
	progressionHandler := handler.NewProgressionHandler(progressionService, logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	postHandler := handler.NewPostHandler(postService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:        examHandler,
		RetakeHandler:      retakeHandler,
		ProgressionHandler: progressionHandler,
		CatalogHandler:     catalogHandler,
		PostHandler:        postHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
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
