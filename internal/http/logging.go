package http

import (
	"context"
	"log/slog"

	"github.com/example/galera-volei/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger starts from the request logger installed by RequestLogger
// and tags entries with the handler, the operation and, on authenticated
// routes, the calling player.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName, "operation", operation)
	if principal, ok := PrincipalFromContext(ctx); ok {
		pairs = append(pairs, "player_id", principal.PlayerID)
	}
	return logging.Scoped(ctx, fallback, append(pairs, attrs...)...)
}
