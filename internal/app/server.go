package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/discovery"
	"github.com/ProfilePlus/ecommerce-microservices/internal/handlers"
	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// NewRouter returns a gin engine with recovery, request logging and /health.
func NewRouter(infra *Infrastructure, checks map[string]handlers.Check) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(infra.Logger))
	router.GET("/health", handlers.NewHealthHandler(infra.Config.ServiceName, checks).HealthCheck)
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("🌐 Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Run serves HTTP and consumes the bus until ctx is done, registering the
// service with Consul for the duration when enabled. bus may be nil.
func (infra *Infrastructure) Run(ctx context.Context, router http.Handler, bus messaging.Bus) error {
	cfg := infra.Config
	logger := infra.Logger

	if cfg.ConsulEnabled {
		deregister := infra.register()
		defer deregister()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("🚀 Service starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if bus != nil {
		g.Go(func() error { return bus.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (infra *Infrastructure) register() func() {
	cfg := infra.Config

	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort, infra.Logger)
	if err != nil {
		infra.Logger.Warn("⚠️ Consul unavailable, skipping registration", zap.Error(err))
		return func() {}
	}

	id := discovery.ServiceID(cfg.ServiceName, cfg.ServiceHost, cfg.HTTPPort)
	err = consul.Register(discovery.ServiceConfig{
		Name:    cfg.ServiceName,
		ID:      id,
		Address: cfg.ServiceHost,
		Port:    cfg.HTTPPort,
		Tags:    []string{"api"},
	})
	if err != nil {
		infra.Logger.Warn("⚠️ Failed to register service", zap.Error(err))
		return func() {}
	}

	return func() {
		if err := consul.Deregister(id); err != nil {
			infra.Logger.Warn("⚠️ Failed to deregister service", zap.Error(err))
		}
	}
}
