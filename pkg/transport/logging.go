package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/molmute/molmute/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// request. The log entry includes the base molecule, the terminal status,
// duration, request ID (from context), and whether the request succeeded
// or failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Analyzer) Analyzer {
		return AnalyzerFunc(func(ctx context.Context, req *api.MutationRequest) (*api.AnalysisResponse, error) {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			resp, err := next.Analyze(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("base_molecule", req.BaseMolecule),
				slog.Duration("duration", time.Since(start)),
			}

			switch {
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "analysis failed", attrs...)
			case resp.Status == api.AnalysisStatusRejected:
				attrs = append(attrs, slog.String("status", string(resp.Status)),
					slog.String("rdkit_error", resp.RDKitError))
				logger.LogAttrs(ctx, slog.LevelInfo, "analysis rejected", attrs...)
			default:
				attrs = append(attrs, slog.String("status", string(resp.Status)))
				logger.LogAttrs(ctx, slog.LevelInfo, "analysis completed", attrs...)
			}

			return resp, err
		})
	}
}
