package opts

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-pkgtree/internal/logfields"
)

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Origin   string
	Result   any
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches an evaluator logger to the engine.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// SlogEvaluatorLogger reports evaluations at debug level and failures at warn.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []slog.Attr{
			logfields.Engine(event.Engine),
			logfields.Expr(event.Expr),
			slog.String("origin", event.Origin),
			logfields.DurationMS(float64(event.Duration.Microseconds()) / 1000),
		}
		if event.Err != nil {
			attrs = append(attrs, logfields.Error(event.Err))
			logger.LogAttrs(context.Background(), slog.LevelWarn, "expression failed", attrs...)
			return
		}
		attrs = append(attrs, slog.Any("result", event.Result))
		logger.LogAttrs(context.Background(), slog.LevelDebug, "expression evaluated", attrs...)
	})
}
