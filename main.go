package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/auth"
	"messenger-service/internal/config"
	"messenger-service/internal/crypt"
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
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName)
	if err != nil {
		log.WithError(err).Fatal("setup tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", serviceName, cfg.Environment, log)

	codec, err := crypt.New([]byte(cfg.CipherKey))
	if err != nil {
		log.WithError(err).Fatal("init message codec")
	}

	userRepo := repositories.NewUserRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub(log)
	router := ws.NewRouter(messageRepo, groupRepo, userRepo, codec, hub, log)
	session := ws.NewSessionHandler(hub, router, groupRepo, tokens, log)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, router, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, groupRepo, codec, router)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/api/register", authHandler.Register)
	engine.POST("/api/login", authHandler.Login)

	authRequired := middleware.Auth(tokens)
	engine.PUT("/api/users/:id", authRequired, authHandler.UpdateProfile)
	engine.GET("/api/users", authRequired, authHandler.ListUsers)

	engine.POST("/api/groups", authRequired, groupHandler.CreateGroup)
	engine.GET("/api/groups", authRequired, groupHandler.ListGroups)
	engine.POST("/api/groups/leave", authRequired, groupHandler.LeaveGroup)
	engine.GET("/api/groups/:group_id/members", authRequired, groupHandler.GroupMembers)

	engine.GET("/api/messages", authRequired, messageHandler.GetMessages)
	engine.PUT("/api/messages/:id", authRequired, messageHandler.EditMessage)
	engine.DELETE("/api/messages/:id", authRequired, messageHandler.DeleteMessage)

	engine.GET("/ws", session.Handle)

	log.WithField("port", cfg.HTTPPort).Info("server starting")
	if err := engine.Run(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
