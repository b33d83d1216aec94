package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/auth"
	"messenger-service/internal/config"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

const serviceName = "messenger-service"

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)

	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", serviceName, cfg.Environment)

	verifier := auth.NewVerifier(cfg.JWTSecret)

	connectionRepo := repositories.NewConnectionRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	relay := ws.NewRelay()

	connectionHandler := handlers.NewConnectionHandler(connectionRepo, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, userRepo, relay, audit)
	sessionHandler := ws.NewSessionHandler(relay, verifier, conversationRepo, messageRepo)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/connect/:target_id", authMiddleware, connectionHandler.SendRequest)
	router.POST("/accept/:requester_id", authMiddleware, connectionHandler.AcceptRequest)
	router.POST("/reject/:requester_id", authMiddleware, connectionHandler.RejectRequest)
	router.DELETE("/remove/:peer_id", authMiddleware, connectionHandler.RemoveConnection)
	router.GET("/friends", authMiddleware, connectionHandler.ListFriendState)

	router.GET("/conversation/:peer_id", authMiddleware, conversationHandler.Open)
	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.POST("/message/:recipient_id", authMiddleware, conversationHandler.Send)

	router.GET("/ws", sessionHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
