// Command server runs the Parley chat service: the WebSocket gateway, the
// REST API, and their shared collaborators.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/backplane"
	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/httpapi"
	"github.com/parley-chat/parley/internal/logger"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/store"
)

func main() {
	cfg := config.FromEnv()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	instanceID := os.Getenv("GATEWAY_ID")
	if instanceID == "" {
		instanceID = "parley-" + uuid.NewString()[:8]
	}

	if cfg.DatabaseURL == "" {
		logger.Errorf("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := store.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	bus := openBackplane(cfg)
	defer func() { _ = bus.Close() }()

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)

	gw := chat.New(instanceID, cfg, tokenVerifier{tokens}, directory{st}, messageStore{st}, bus)
	if err := gw.Start(); err != nil {
		// Keep serving; local fan-out still works without the backplane.
		logger.Warnf("backplane subscription failed, running single-instance: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := httpapi.New(st, tokens, gw)
	api.Register(r)

	origins := server.NewOriginPolicy(cfg.AllowedOrigins)
	upgrader := chat.NewUpgrader(origins.Check)
	r.GET("/ws", gw.HandleWSWith(upgrader))

	srv := server.New(cfg.Port, r)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(srv) }()

	logger.Infof("gateway %s ready on %s (backplane: %s)", instanceID, cfg.Port, cfg.Backplane)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		logger.Errorf("server exited: %v", err)
	}

	_ = server.Shutdown(srv, 10*time.Second)
	_ = gw.Hub().Shutdown(5 * time.Second)
}

// openBackplane connects the configured cross-instance transport. If it is
// unreachable the gateway falls back to an in-process bus and keeps serving
// in single-instance mode.
func openBackplane(cfg *config.Config) backplane.Backplane {
	switch cfg.Backplane {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis unreachable at %s, degrading to local-only fan-out: %v", cfg.RedisAddr, err)
			_ = client.Close()
			return backplane.NewMemory()
		}
		return backplane.NewRedis(client)
	case "nats":
		conn, err := nats.Connect(cfg.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			logger.Warnf("nats unreachable at %s, degrading to local-only fan-out: %v", cfg.NATSURL, err)
			return backplane.NewMemory()
		}
		return backplane.NewNATS(conn)
	default:
		return backplane.NewMemory()
	}
}
