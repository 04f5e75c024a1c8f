package middlewares

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gqlrelay/internal/core"
	"gqlrelay/internal/core/security"
)

// Logger logs each request on the way in and its outcome on the way out.
// Variables are logged at debug level with secrets sanitized.
func Logger(log *zap.Logger) core.Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	scanner := security.NewScanner()

	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			start := time.Now()
			reqLog := log.With(
				zap.String("request_id", req.ID),
				zap.String("operation", req.OperationName()),
			)

			reqLog.Info("request started",
				zap.String("method", req.Method),
				zap.String("url", req.URL),
			)
			if ce := reqLog.Check(zap.DebugLevel, "request variables"); ce != nil {
				ce.Write(zap.String("variables", scanner.Sanitize(req.Variables().Raw)))
			}

			resp, err := next(ctx, req)
			latency := time.Since(start)

			if err != nil {
				fields := []zap.Field{zap.Duration("latency", latency), zap.Error(err)}
				if reqErr, ok := core.AsRequestError(err); ok {
					fields = append(fields,
						zap.String("kind", reqErr.Kind.String()),
						zap.Int("status", reqErr.Status()),
					)
				}
				reqLog.Warn("request failed", fields...)
				return nil, err
			}

			fields := []zap.Field{zap.Duration("latency", latency)}
			if resp != nil {
				fields = append(fields,
					zap.Int("status", resp.Status),
					zap.Int("graphql_errors", len(resp.Errors)),
				)
			}
			reqLog.Info("request finished", fields...)
			return resp, nil
		}
	}
}
