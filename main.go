package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"serveease-chat/internal/auth"
	"serveease-chat/internal/chat"
	"serveease-chat/internal/db"
	"serveease-chat/internal/handlers"
	"serveease-chat/internal/middleware"
	"serveease-chat/internal/notify"
	"serveease-chat/internal/observability"
	"serveease-chat/internal/rabbitmq"
	"serveease-chat/internal/repositories"
	"serveease-chat/internal/telemetry"
	"serveease-chat/internal/ws"
)

const (
	serviceName     = "serveease-chat"
	uploadURLPrefix = "/uploads/chat"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	uploadDir := getEnv("UPLOAD_DIR", "uploads/chat")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir: %v", err)
	}

	verifier := auth.NewVerifier(getEnv("JWT_SECRET", "dev-secret"), serviceName)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)
	typingRepo := repositories.NewTypingRepo(database)
	userRepo := repositories.NewUserRepo(database)
	serviceRequestRepo := repositories.NewServiceRequestRepo(database)

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "serveease.events"))
	defer publisher.Close()

	hub := ws.NewHub()
	svc := chat.NewService(chat.Config{
		Conversations:   conversationRepo,
		Messages:        messageRepo,
		Receipts:        receiptRepo,
		Typing:          typingRepo,
		Users:           userRepo,
		ServiceRequests: serviceRequestRepo,
		Broadcaster:     hub,
		Notifier:        notify.NewOfflineNotifier(publisher),
		UploadDir:       uploadDir,
	})

	gateway := ws.NewGateway(hub, svc, userRepo, verifier)
	sweeper := ws.NewSweeper(typingRepo, userRepo, hub, 30*time.Second, 30*time.Second)
	sweeper.Start()
	defer sweeper.Stop()

	chatHandler := handlers.NewChatHandler(svc)
	uploadHandler := handlers.NewUploadHandler(uploadDir, uploadURLPrefix)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier, userRepo)

	router.GET("/conversations", authMiddleware, chatHandler.ListConversations)
	router.POST("/conversations", authMiddleware, chatHandler.CreateConversation)
	router.GET("/conversations/:id", authMiddleware, chatHandler.GetConversation)
	router.GET("/conversations/:id/messages", authMiddleware, chatHandler.ListMessages)
	router.POST("/conversations/:id/messages", authMiddleware, chatHandler.SendMessage)
	router.POST("/conversations/:id/read", authMiddleware, chatHandler.MarkRead)
	router.GET("/conversations/:id/unread", authMiddleware, chatHandler.UnreadCount)
	router.GET("/conversations/:id/participants", authMiddleware, chatHandler.Participants)
	router.PUT("/conversations/:id/archive", authMiddleware, chatHandler.Archive)
	router.PUT("/conversations/:id/block", authMiddleware, chatHandler.Block)
	router.PUT("/messages/:id", authMiddleware, chatHandler.EditMessage)
	router.DELETE("/messages/:id", authMiddleware, chatHandler.DeleteMessage)
	router.POST("/upload", authMiddleware, uploadHandler.Upload)

	router.GET("/ws", gateway.Handle)

	router.Static(uploadURLPrefix, uploadDir)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	server := &http.Server{
		Addr:    ":" + getEnv("PORT", "8083"),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
