package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func slogGinLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		errStr := ""
		if len(c.Errors) > 0 {
			errStr = c.Errors.String()
		}

		fields := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"query", rawQuery,
			"ip", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
		}
		if errStr != "" {
			fields = append(fields, "errors", errStr)
		}

		if status >= 500 {
			logger.Error("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

// newServerErrorWriter routes net/http server errors into slog. TLS
// handshake errors for unconfigured hosts are discarded to avoid log spam
// from bots and scanners.
func newServerErrorWriter(logger *slog.Logger) io.Writer {
	return &serverErrorWriter{logger: logger}
}

type serverErrorWriter struct {
	logger *slog.Logger
}

func (w *serverErrorWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}
	if strings.Contains(msg, "TLS handshake error") && strings.Contains(msg, "not configured") {
		return len(p), nil
	}
	w.logger.Log(context.Background(), slog.LevelWarn, "http server", "message", msg)
	return len(p), nil
}
