package opts

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-pkgtree/document"
)

var ErrNoEvaluator = errors.New("opts: evaluator not configured")

// Engine names accepted by NewEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Engine evaluates guard and value expressions with one evaluator, reporting
// every evaluation to the configured EvaluatorLogger.
type Engine struct {
	name      string
	evaluator Evaluator
	logger    EvaluatorLogger
}

// NewEngine builds the named engine. An empty name selects expr. Engines get
// a MemoryProgramCache and DefaultFunctions unless configured otherwise.
func NewEngine(name string, opts ...Option) (*Engine, error) {
	cfg := applyOptions(opts)
	if cfg.programCache == nil {
		cfg.programCache = NewMemoryProgramCache()
	}
	if cfg.functions == nil {
		cfg.functions = DefaultFunctions()
	}

	engine := &Engine{name: name, logger: cfg.evaluatorLogger()}
	if cfg.evaluator != nil {
		engine.evaluator = cfg.evaluator
		if engine.name == "" {
			engine.name = evaluatorEngineName(cfg.evaluator)
		}
		return engine, nil
	}

	switch name {
	case "", EngineExpr:
		engine.name = EngineExpr
		engine.evaluator = NewExprEvaluator(ExprWithProgramCache(cfg.programCache), ExprWithFunctionRegistry(cfg.functions))
	case EngineCEL:
		engine.evaluator = NewCELEvaluator(CELWithProgramCache(cfg.programCache), CELWithFunctionRegistry(cfg.functions))
	case EngineJS:
		engine.evaluator = NewJSEvaluator(JSWithProgramCache(cfg.programCache), JSWithFunctionRegistry(cfg.functions))
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, name)
	}
	return engine, nil
}

// Name reports the engine name.
func (e *Engine) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Evaluate runs expr against ctx. With ifContext set the result must be a
// boolean.
func (e *Engine) Evaluate(ctx RuleContext, expr string, ifContext bool) (any, error) {
	if e == nil || e.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, evalErr := e.evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(e.name, expr, ctx.originLabel(), evalErr)
	if evalErr == nil && ifContext {
		if _, ok := value.(bool); !ok {
			evalErr = &EvaluationError{
				Engine: e.name,
				Expr:   expr,
				Origin: ctx.originLabel(),
				Err:    fmt.Errorf("expected a boolean result, got %T", value),
			}
		}
	}
	e.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   e.name,
		Expr:     expr,
		Origin:   ctx.originLabel(),
		Result:   value,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Guard evaluates a guard expression located at pos. Compile failures are
// reported as *ExpressionParseError carrying pos; runtime failures and
// non-boolean results are wrapped in a *document.FieldValueError.
func (e *Engine) Guard(symbols Symbols, expr string, pos document.Position) (bool, error) {
	value, err := e.Evaluate(RuleContext{Symbols: symbols, Origin: pos.String()}, expr, true)
	if err != nil {
		var parseErr *ExpressionParseError
		if errors.As(err, &parseErr) {
			if parseErr.Pos == (document.Position{}) {
				parseErr.Pos = pos
			}
			return false, parseErr
		}
		return false, &document.FieldValueError{Pos: pos, Err: err}
	}
	return value.(bool), nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*opts.exprEvaluator":
		return EngineExpr
	case "*opts.celEvaluator":
		return EngineCEL
	case "*opts.jsEvaluator":
		return EngineJS
	default:
		return "custom"
	}
}
