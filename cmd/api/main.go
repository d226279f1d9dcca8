package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/infra/auth"
	"github.com/xavierca1/ligue-leads/internal/infra/database"
	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/logger"
	"github.com/xavierca1/ligue-leads/internal/infra/mail"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
	"github.com/xavierca1/ligue-leads/internal/infra/ratelimit"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func main() {
	godotenv.Load()

	log, err := logger.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), "ligue-leads")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter falls back to a
	// per-instance window.
	var redisClient *redis.Client
	var limiter ratelimit.Limiter
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.DefaultLimit, ratelimit.DefaultWindow*time.Second)
	} else {
		log.Warn("REDIS_ADDR not set, rate limits are per-instance only")
		limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultLimit, ratelimit.DefaultWindow*time.Second)
	}

	// RabbitMQ is optional too: lead events are best-effort by contract.
	var rabbitConn *amqp.Connection
	var producer usecase.QueueProducerInterface
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		rabbitMQ, err := queue.NewRabbitMQ(url)
		if err != nil {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer rabbitMQ.Conn.Close()
		defer rabbitMQ.Ch.Close()
		rabbitConn = rabbitMQ.Conn
		producer = queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	} else {
		log.Warn("RABBITMQ_URL not set, lead events disabled")
	}

	var mailSender usecase.EmailService
	if host := os.Getenv("MAIL_HOST"); host != "" {
		mailSender = mail.NewEmailSender(
			host, 587,
			os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			os.Getenv("MAIL_FROM"),
		)
	}

	// Repositories
	leadRepo := database.NewLeadRepository(db)
	tenantRepo := database.NewTenantRepository(db)
	nonceRepo := database.NewNonceRepository(db)
	auditRepo := database.NewAuditRepository(db, auditColumnsFromEnv(), log)

	// Authenticator
	identity := auth.NewIdentityClient(
		os.Getenv("IDENTITY_PROVIDER_URL"),
		os.Getenv("IDENTITY_PROVIDER_KEY"),
	)
	authenticator := auth.NewAuthenticator(identity, nonceRepo, os.Getenv("INTERNAL_API_SECRET"))

	// UseCases
	ingestUC := usecase.NewIngestLeadUseCase(
		leadRepo, tenantRepo, auditRepo, producer, mailSender,
		os.Getenv("SALES_INBOX"), log,
	)

	// Handlers
	ingestHandler := handlers.NewIngestHandler(ingestUC, authenticator, limiter, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, rabbitConn)

	// Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Authorization", "Content-Type",
			auth.HeaderInternalSecret, auth.HeaderRequestTimestamp, auth.HeaderRequestNonce,
		},
	}))

	r.Post("/leads/ingest", ingestHandler.Handle)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info("lead gateway listening", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

// auditColumnsFromEnv reads the optional capability descriptor. When unset,
// the audit repository probes information_schema once instead.
func auditColumnsFromEnv() []string {
	raw := os.Getenv("AUDIT_SCHEMA_COLUMNS")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
