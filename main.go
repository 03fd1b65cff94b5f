package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"portal-service/internal/auth"
	"portal-service/internal/db"
	"portal-service/internal/handlers"
	"portal-service/internal/middleware"
	"portal-service/internal/observability"
	"portal-service/internal/payments"
	"portal-service/internal/rabbitmq"
	"portal-service/internal/repositories"
	"portal-service/internal/storage"
	"portal-service/internal/telemetry"
	"portal-service/internal/ws"
)

func main() {
	ctx := context.Background()

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, "portal-service", endpoint)
		if err != nil {
			log.Printf("tracing disabled: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("tracing shutdown: %v", err)
				}
			}()
		}
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	verifier, err := auth.NewVerifier(getEnv("JWT_SECRET", "dev-secret"))
	if err != nil {
		log.Fatalf("failed to build token verifier: %v", err)
	}

	auditPublisher := rabbitmq.NewPublisher(os.Getenv("AMQP_URL"), getEnv("AMQP_EXCHANGE", "portal.events"))
	defer auditPublisher.Close()
	if reason := rabbitmq.PublisherNoopReason(auditPublisher); reason != "" {
		log.Printf("audit publisher mode=noop reason=%s", reason)
	} else {
		log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	}
	audit := telemetry.NewAuditEmitter(auditPublisher, getEnv("AUDIT_ROUTING_KEY", "audit.portal"), "portal-service", getEnv("ENVIRONMENT", "development"))

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("WS_EVENTS_EXCHANGE", "portal.ws_events"))
		if err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	var rdb *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("presence disabled: redis unreachable: %v", err)
			rdb = nil
		}
	}

	store, err := storage.NewLocalStore(getEnv("STORAGE_ROOT", "./data/files"))
	if err != nil {
		log.Fatalf("failed to open file storage: %v", err)
	}

	baseURL := getEnv("PUBLIC_BASE_URL", "http://localhost:8086")
	signer, err := storage.NewURLSigner(getEnv("DOWNLOAD_SIGNING_SECRET", "dev-download-secret"), baseURL, time.Hour)
	if err != nil {
		log.Fatalf("failed to build url signer: %v", err)
	}

	var checkoutProvider payments.CheckoutProvider
	if stripeKey := os.Getenv("STRIPE_SECRET_KEY"); stripeKey != "" {
		checkoutProvider, err = payments.NewStripeProvider(stripeKey, getEnv("CHECKOUT_RETURN_URL", baseURL))
		if err != nil {
			log.Fatalf("failed to configure stripe: %v", err)
		}
	}

	profileRepo := repositories.NewProfileRepo(database)
	requestRepo := repositories.NewRequestRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	fileRepo := repositories.NewFileRepo(database)
	paymentRepo := repositories.NewPaymentRepo(database)

	hub := ws.NewHub()
	presence := ws.NewPresence(rdb, 5*time.Minute)

	requestHandler := handlers.NewRequestHandler(requestRepo, fileRepo, messageRepo, profileRepo, store, audit)
	messageHandler := handlers.NewMessageHandler(requestRepo, messageRepo, profileRepo, hub, requestHandler)
	fileHandler := handlers.NewFileHandler(fileRepo, profileRepo, paymentRepo, store, signer, requestHandler, audit)
	presenceHandler := handlers.NewPresenceHandler(presence, profileRepo, requestHandler)

	amountCents := getEnvInt64("CHECKOUT_AMOUNT_CENTS", 5000)
	currency := getEnv("CHECKOUT_CURRENCY", "usd")
	paymentHandler := handlers.NewPaymentHandler(paymentRepo, checkoutProvider, requestHandler, amountCents, currency, audit)
	webhookHandler := handlers.NewWebhookHandler(paymentRepo, handlers.NewStripeEventVerifier(os.Getenv("STRIPE_WEBHOOK_SECRET")), audit)

	conversationWS := ws.NewConversationWebSocketHandler(hub, requestRepo, verifier, presence)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("portal-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/requests", authMiddleware, requestHandler.ListRequests)
	router.GET("/requests/:request_id", authMiddleware, requestHandler.GetRequest)
	router.POST("/requests", authMiddleware, requestHandler.CreateRequest)
	router.PATCH("/requests", authMiddleware, requestHandler.UpdateStatus)
	router.DELETE("/requests", authMiddleware, requestHandler.CancelRequest)

	router.GET("/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/presence", authMiddleware, presenceHandler.GetPresence)

	router.POST("/files", authMiddleware, fileHandler.Upload)
	router.GET("/files", authMiddleware, fileHandler.ListFiles)
	router.GET("/files/:file_id/download", fileHandler.Download)
	router.DELETE("/files/:file_id", authMiddleware, fileHandler.DeleteFile)

	router.POST("/checkout", authMiddleware, paymentHandler.CreateCheckout)
	router.GET("/payments", authMiddleware, paymentHandler.GetPaymentStatus)
	router.POST("/stripe/webhook", webhookHandler.HandleStripeEvent)

	router.GET("/ws/requests/:request_id", conversationWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, os.Getenv("DEBUG_ROUTES") == "true")

	port := getEnv("PORT", "8086")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
