package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"github.com/ProfilePlus/ecommerce-microservices/internal/discovery"
	"github.com/ProfilePlus/ecommerce-microservices/internal/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceGateway)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg)
	defer logger.Sync()

	var resolver Resolver
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort, logger)
	if err != nil {
		logger.Warn("⚠️ Failed to connect to Consul, using cluster DNS", zap.Error(err))
	} else {
		resolver = consul
	}

	gateway := NewGateway(resolver, fallbackURLs, logger)
	go gateway.watchServices(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	gateway.Routes(router)

	srv := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("🚀 API Gateway starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("API Gateway failed", zap.Error(err))
	}
}
