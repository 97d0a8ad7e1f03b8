package main // Entry point package

import (
	"context" // Contexts for startup and background jobs
	"log"     // Logging library
	"time"    // Sweep interval for the revocation purger

	"github.com/joho/godotenv"    // Loads a local .env file in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/taskify/internal/audit"      // Audit trail recorder
	"github.com/iliyamo/taskify/internal/config"     // Internal config loader
	"github.com/iliyamo/taskify/internal/database"   // MySQL pool and migrations
	"github.com/iliyamo/taskify/internal/handler"    // HTTP handlers
	"github.com/iliyamo/taskify/internal/mailer"     // SMTP mail sender
	"github.com/iliyamo/taskify/internal/middleware" // Auth, rate limit and cache middleware
	"github.com/iliyamo/taskify/internal/queue"      // RabbitMQ publisher/consumer
	"github.com/iliyamo/taskify/internal/repository" // Data access layer
	"github.com/iliyamo/taskify/internal/router"     // Route registration
	"github.com/iliyamo/taskify/internal/storage"    // S3 object storage
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env wins

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and bring the schema up to date before serving.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Repositories share the single pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	boards := repository.NewBoardRepo(db)
	columns := repository.NewColumnRepo(db)
	tasks := repository.NewTaskRepo(db)
	subtasks := repository.NewSubtaskRepo(db)
	otps := repository.NewOTPRepo(db)

	// Every successful write is mirrored into audit_logs.
	var recorder audit.Recorder = audit.NewSQLRecorder(db)

	// Profile image uploads are optional; without S3 settings registration
	// simply skips the image.
	var uploader storage.Uploader
	if cfg.S3Bucket != "" {
		up, err := storage.NewS3Uploader(context.Background(), cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3Key, cfg.S3Secret)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		uploader = up
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true

	// Redis is optional. When reachable it backs the token-bucket rate
	// limiter and the response cache; when not, both middlewares pass
	// requests straight through.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Authorization runs on every route; its public-prefix allow list
	// decides which endpoints skip the session check.
	e.Use(middleware.Auth(cfg, tokens, users))

	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		User:     handler.NewUserHandler(cfg, users, uploader, recorder),
		Board:    handler.NewBoardHandler(boards, recorder),
		Column:   handler.NewColumnHandler(columns, recorder),
		Task:     handler.NewTaskHandler(tasks, recorder),
		Subtask:  handler.NewSubtaskHandler(subtasks, recorder),
		Password: handler.NewPasswordHandler(cfg, users, otps),
	})

	// Mail is delivered off the request path: handlers publish events and
	// this consumer turns them into SMTP sends, reconnecting on failure.
	if cfg.AMQPURL != "" {
		m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		go queue.StartMailConsumer(cfg.AMQPURL, m)
	}

	// Revoked tokens outlive their usefulness once the JWT itself expires;
	// an hourly sweep keeps the table from growing without bound.
	go func() {
		for {
			time.Sleep(time.Hour)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := tokens.PurgeExpired(ctx); err != nil {
				log.Printf("revocation sweep: %v", err)
			} else if n > 0 {
				log.Printf("revocation sweep: purged %d expired tokens", n)
			}
			cancel()
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
