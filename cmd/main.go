package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ikraamdaanis/discourse/internal/cache"
	"github.com/ikraamdaanis/discourse/internal/config"
	"github.com/ikraamdaanis/discourse/internal/conversation"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/handler"
	"github.com/ikraamdaanis/discourse/internal/hub"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/internal/service"
	"github.com/ikraamdaanis/discourse/pkg/database"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.MessageModel{},
		&domain.ConversationModel{},
		&domain.ChannelModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	bus, err := pubsub.New(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event bus")
	}
	defer bus.Close()

	var pageCache cache.PageCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisPageCache(cfg.Cache.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create page cache")
		}
		defer redisCache.Close()
		pageCache = redisCache
	}

	messageRepo := repository.NewGormMessageRepository(db)
	conversationRepo := repository.NewGormConversationRepository(db)
	channelRepo := repository.NewGormChannelRepository(db)
	resolver := conversation.NewResolver(conversationRepo)

	historyService := service.NewHistoryService(messageRepo, conversationRepo, channelRepo, pageCache, cfg.Cache.Redis.TTL)
	chatService := service.NewChatService(messageRepo, conversationRepo, channelRepo, resolver, bus)

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	bridge := hub.NewBridge(bus, wsHub)
	defer bridge.Close()

	auth := handler.NewHeaderAuthenticator()
	httpHandler := handler.NewHTTPHandler(historyService, chatService, auth, cfg.History)
	wsHandler := handler.NewWSHandler(wsHub, bridge, chatService, auth, cfg.WebSocket)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))

	httpHandler.RegisterRoutes(router)
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
