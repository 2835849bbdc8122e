package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/molmute/molmute/pkg/api"
)

// Recovery returns middleware that recovers from panics in downstream
// handlers and converts them into a generic server error. The panic value
// and stack trace are logged, never surfaced to the caller.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Analyzer) Analyzer {
		return AnalyzerFunc(func(ctx context.Context, req *api.MutationRequest) (resp *api.AnalysisResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.LogAttrs(ctx, slog.LevelError, "panic recovered",
						slog.String("request_id", RequestIDFromContext(ctx)),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					resp = nil
					err = api.NewServerError("internal server error")
				}
			}()
			return next.Analyze(ctx, req)
		})
	}
}
