// Package logging builds the zap logger used by every component of the
// server and attaches per-request fields to it.
package logging

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leoska/gameapi/pkg/config"
)

// Context keys set by the request middleware and read back by WithRequest.
const (
	RequestIDKey     = "request_id"
	SourceAddressKey = "source_address"
)

// NewLogger creates a new zap logger based on the configuration
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.DisableStacktrace = true
	}

	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

// ParseLevel converts a string level to zapcore.Level
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// WithRequest returns a logger carrying the request id and source address
// stored on the gin context, if any.
func WithRequest(l *zap.Logger, c *gin.Context) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if rid := c.GetString(RequestIDKey); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if addr := c.GetString(SourceAddressKey); addr != "" {
		fields = append(fields, zap.String("source_address", addr))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
