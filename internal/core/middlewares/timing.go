package middlewares

import (
	"context"
	"time"

	"gqlrelay/internal/core"
)

// LatencyKey is the metadata key holding the time spent below the Timing middleware
const LatencyKey = "latency"

// Timing records how long the rest of the chain took, success or not
func Timing() core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			req.SetMetadata(LatencyKey, time.Since(start))
			return resp, err
		}
	}
}
