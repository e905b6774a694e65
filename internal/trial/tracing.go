// Tracing instrumentation for trial runs.
package trial

import (
	"context"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startRunSpan starts the root span for a hearing.
func startRunSpan(ctx context.Context, topic string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "trial.run")
	span.SetAttributes(attribute.String("trial.topic", topic))
	return ctx, span
}

// endRunSpan ends the run span with the loop outcome.
func endRunSpan(span trace.Span, outcome Outcome, location string, err error) {
	span.SetAttributes(
		attribute.String("trial.outcome", string(outcome.State)),
		attribute.Int("trial.iterations", outcome.Iterations),
	)
	if location != "" {
		span.SetAttributes(attribute.String("trial.report", location))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startIterationSpan starts a span for one fan-out plus gate pass.
func startIterationSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "trial.iteration")
	span.SetAttributes(attribute.Int("iteration", iteration))
	return ctx, span
}

// endIterationSpan ends the iteration span with the gate decision.
func endIterationSpan(span trace.Span, decision Decision, err error) {
	span.SetAttributes(attribute.String("iteration.decision", decision.String()))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startAgentSpan starts a span for a single agent invocation.
func startAgentSpan(ctx context.Context, agent string, iteration int) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "agent."+agent)
	span.SetAttributes(
		attribute.String("agent.name", agent),
		attribute.Int("agent.iteration", iteration),
	)
	return ctx, span
}

// endAgentSpan ends the agent span, recording output only in debug mode.
func endAgentSpan(span trace.Span, output string, err error) {
	tracer := telemetry.GetTracer()
	if tracer.Debug() && output != "" {
		span.SetAttributes(attribute.String("agent.output", truncateForLog(output, 2000)))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
