package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/kbdlight/internal/logging"
)

// HTTPLoggingMiddleware logs each request once it completed. The level
// follows the status: errors at ERROR, client errors at WARN, health checks
// and event streams at DEBUG, everything else at INFO.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	path := ctx.URL().Path
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if op := ctx.Operation(); op != nil {
		attrs = append(attrs, slog.String("operation", op.OperationID))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	case path == "/api/health", path == "/api/events":
		level = slog.LevelDebug
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}
