package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// LoggerWithTrace enriches base with trace_id/span_id/trace_sampled pulled
// from ctx's active span, if any, so a request's logs and its trace can be
// correlated without threading a span through every log call site.
func LoggerWithTrace(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return base
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return base
	}
	l := base.With().Str("trace_id", sc.TraceID().String())
	if sc.HasSpanID() {
		l = l.Str("span_id", sc.SpanID().String())
	}
	if sc.IsSampled() {
		l = l.Bool("trace_sampled", true)
	}
	return l.Logger()
}
