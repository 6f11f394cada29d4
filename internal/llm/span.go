package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tradedesk/internal/observability"
)

var tracer = otel.Tracer("internal/llm")

// StartRequestSpan opens a span around one provider call and logs the
// model and the number of outgoing messages (not their content) at debug
// level.
func StartRequestSpan(ctx context.Context, op, model string, messages []Message) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, op,
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.messages", len(messages)),
		),
	)
	log := observability.LoggerWithTrace(ctx)
	log.Debug().Str("model", model).Int("messages", len(messages)).Msg("llm_request_start")
	return ctx, span
}
