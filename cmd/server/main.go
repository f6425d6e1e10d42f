package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/api/handlers"
	"github.com/agencykit/instaflow/internal/api/middleware"
	job "github.com/agencykit/instaflow/internal/jobs"
	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/queue"
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/service"
	"github.com/agencykit/instaflow/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	accountRepo := repository.NewConnectedAccountRepository(db)
	stateRepo := repository.NewOAuthStateRepository(db)
	postRepo := repository.NewScheduledPostRepository(db)

	cipher := utils.NewTokenCipher(cfg.SecretKey)
	graphClient := meta.NewClient(*cfg)

	oauthService := service.NewOAuthService(*cfg, graphClient, accountRepo, stateRepo, cipher)
	accountService := service.NewAccountService(accountRepo)
	tokenService := service.NewTokenService(*cfg, graphClient, accountRepo, cipher)
	publishService := service.NewPublishService(*cfg, graphClient, accountRepo, postRepo, cipher)
	postService := service.NewPostService(postRepo, accountRepo)
	r2Service := service.NewR2Service(*cfg)
	mediaService := service.NewMediaService(r2Service)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	account := handlers.NewAccountHandler(oauthService, accountService, tokenService, *cfg)
	app.Get("/auth/instagram/callback", account.InstagramCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/instagram", account.ConnectInstagram)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/remove", account.DisconnectAccount)
	api.Post("/accounts/refresh", account.RefreshAccountToken)

	post := handlers.NewPostHandler(postService, publishService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/publish", post.PublishNow)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(tokenService, cfg.RefreshBeforeDays)
	duePostJob := job.NewDuePostJob(postRepo, publishService, time.Duration(cfg.PostDelaySec)*time.Second)

	// queue
	queueW := queue.NewQueue(postRepo, publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", duePostJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
