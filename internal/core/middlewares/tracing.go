package middlewares

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gqlrelay/internal/core"
)

// TracerName is the instrumentation name used when no tracer is given
const TracerName = "gqlrelay"

// Tracing wraps the rest of the chain in a client span named after the operation.
// The span context travels in ctx, so an instrumented transport nests under it.
func Tracing(tracer trace.Tracer) core.Middleware {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}

	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			op := req.OperationName()
			name := "graphql"
			if op != "" {
				name = "graphql " + op
			}

			ctx, span := tracer.Start(ctx, name,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("graphql.operation.name", op),
					attribute.String("gqlrelay.request_id", req.ID),
				),
			)
			defer span.End()

			resp, err := next(ctx, req)
			if err != nil {
				if reqErr, ok := core.AsRequestError(err); ok {
					span.SetAttributes(attribute.String("gqlrelay.error.kind", reqErr.Kind.String()))
					if status := reqErr.Status(); status > 0 {
						span.SetAttributes(attribute.Int("http.response.status_code", status))
					}
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}

			if resp != nil {
				span.SetAttributes(
					attribute.String("url.full", resp.URL),
					attribute.Int("http.response.status_code", resp.Status),
					attribute.Int("graphql.errors", len(resp.Errors)),
				)
			}
			return resp, nil
		}
	}
}
