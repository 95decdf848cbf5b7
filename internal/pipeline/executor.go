package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomflow/roomflow/internal/chat"
)

// Outcome summarizes one pipeline run.
type Outcome struct {
	// Signal is SignalStop when a stage halted the run, SignalContinue
	// when every stage ran to the end.
	Signal Signal
	// StoppedAt names the stage that halted the run, if any.
	StoppedAt string
	// Message is the context's final message content.
	Message string
	// Context is the execution context the run used, kept for callers that
	// need the resolved room or per-stage signals.
	Context *Context
}

// Executor runs one session's message through the registry's finalized
// stage order. Stage handlers execute sequentially within a run; concurrent
// runs share nothing but the sealed registry.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		logger:   logger,
		tracer:   otel.Tracer("roomflow/pipeline"),
	}
}

// Run walks the finalized stage order for one inbound message. The order is
// computed on first run and cached. A handler error aborts the run wrapped
// as StageExecutionError; Stop halts the run and sends the context's
// message, if any, through the session's reply capability.
func (e *Executor) Run(ctx context.Context, sess *chat.Session) (*Outcome, error) {
	stages, err := e.registry.ordered()
	if err != nil {
		return nil, err
	}

	ec := NewContext()
	ec.Message = sess.Content

	for _, s := range stages {
		stageCtx, span := e.tracer.Start(ctx, "pipeline.stage",
			trace.WithAttributes(attribute.String("stage", s.name)))

		result, err := s.handler(stageCtx, sess, ec)
		if err != nil {
			span.RecordError(err)
			span.End()
			e.logger.Error("stage failed",
				slog.String("stage", s.name),
				slog.String("error", err.Error()),
			)
			return nil, &StageExecutionError{Stage: s.name, Err: err}
		}

		if result.Message != "" {
			ec.Message = result.Message
		}
		ec.recordSignal(s.name, result.Signal)
		span.SetAttributes(attribute.String("signal", string(result.Signal)))
		span.End()

		switch result.Signal {
		case SignalStop:
			if ec.Message != "" {
				sess.Send(ec.Message)
			}
			e.logger.Debug("pipeline stopped", slog.String("stage", s.name))
			return &Outcome{
				Signal:    SignalStop,
				StoppedAt: s.name,
				Message:   ec.Message,
				Context:   ec,
			}, nil
		case SignalSkipped:
			e.logger.Debug("stage skipped", slog.String("stage", s.name))
		case SignalContinue:
			// next stage
		}
	}

	return &Outcome{Signal: SignalContinue, Message: ec.Message, Context: ec}, nil
}
