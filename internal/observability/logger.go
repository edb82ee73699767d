package observability

import (
	"os"

	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger: a JSON console core, teed into the
// otelzap bridge when an OTLP endpoint is configured.
func NewLogger(cfg *config.Config) *zap.Logger {
	level := zap.InfoLevel
	if l, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		level = l
	}

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	)

	core := consoleCore
	if cfg.OtelEndpoint != "" {
		otelZapCore := otelzap.NewCore(cfg.ServiceName,
			otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		)
		core = zapcore.NewTee(otelZapCore, consoleCore)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", cfg.ServiceName)),
	)
}
