package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"modelgql/internal/logging"
)

// GraphQLTracingMiddleware wraps GraphQL execution in a span carrying the
// operation's shape. Requests without a parseable operation pass through.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, metadata := requestMetadata(r)
			if metadata == nil {
				next.ServeHTTP(w, r)
				return
			}

			tracer := otel.Tracer("modelgql/graphql")
			ctx, span := tracer.Start(r.Context(), "graphql.execute")
			defer span.End()

			logger := logging.FromContext(ctx).WithFields(slog.String("operation_type", metadata.operationType))
			if metadata.operationName != "" {
				logger = logger.WithFields(slog.String("operation_name", metadata.operationName))
			}
			if spanCtx := span.SpanContext(); spanCtx.IsValid() {
				logger = logger.WithFields(
					slog.String("trace_id", spanCtx.TraceID().String()),
					slog.String("span_id", spanCtx.SpanID().String()),
				)
			}
			ctx = logging.WithLogger(ctx, logger)

			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("graphql.operation.type", metadata.operationType),
					attribute.String("graphql.operation.name", metadata.operationName),
					attribute.Int("graphql.query.field_count", metadata.fieldCount),
					attribute.Int("graphql.query.depth", metadata.selectionDepth),
					attribute.Int("graphql.query.variable_count", metadata.variableCount),
				)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
