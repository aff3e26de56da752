// Package middleware provides HTTP middleware for the game API server.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leoska/gameapi/pkg/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ForwardedForHeader takes precedence over the peer address when present.
const ForwardedForHeader = "X-Forwarded-For"

// RequestID assigns every request an id, reusing a client supplied one when
// it is present, and echoes it in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// SourceAddress resolves the caller address and stores it on the context.
func SourceAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logging.SourceAddressKey, ResolveSourceAddress(c.Request))
		c.Next()
	}
}

// ResolveSourceAddress returns the first X-Forwarded-For entry, or the peer IP
// when the header is absent. Forwarded values are trusted as-is.
func ResolveSourceAddress(r *http.Request) string {
	if fwd := r.Header.Get(ForwardedForHeader); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return HostOnly(r.RemoteAddr)
}

// HostOnly strips the port from a host:port pair.
func HostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Logger logs every request once it completes.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		l := logging.WithRequest(logger, c)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			l.Error("Request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		l.Info("Request", fields...)
	}
}

// Recovery turns a panic escaping the handlers into a plain-text 500.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.WithRequest(logger, c).Error("Request panicked",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.String(http.StatusInternalServerError, "Internal error")
		c.Abort()
	})
}
