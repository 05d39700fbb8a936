package opts

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

// jsPrologue wraps an expression so it can be compiled as a program. Parse
// error columns on the first line are shifted back by its length.
const jsPrologue = "(function(){ return ("

// JSEvaluatorOption configures the JavaScript evaluator.
type JSEvaluatorOption func(*jsEvaluator)

// JSWithProgramCache shares compiled programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		e.cache = cache
	}
}

// JSWithFunctionRegistry exposes every registered function as a global.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// jsEvaluator runs expressions with goja. Each evaluation gets a fresh
// runtime, so guards cannot leak state into each other.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	e := &jsEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, fmt.Errorf("expression must not be empty"))
	}
	key := "js:" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return &jsCompiledRule{evaluator: e, expression: expression, program: program}, nil
			}
		}
	}
	program, err := goja.Compile("guard", jsPrologue+expression+"); })()", true)
	if err != nil {
		return nil, jsParseError(expression, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return &jsCompiledRule{evaluator: e, expression: expression, program: program}, nil
}

func jsParseError(expression string, err error) error {
	var (
		line, column int
		message      = err.Error()
		list         parser.ErrorList
		syntaxErr    *goja.CompilerSyntaxError
	)
	switch {
	case errors.As(err, &list) && len(list) > 0:
		line, column, message = list[0].Position.Line, list[0].Position.Column, list[0].Message
	case errors.As(err, &syntaxErr) && syntaxErr.File != nil:
		pos := syntaxErr.File.Position(syntaxErr.Offset)
		line, column, message = pos.Line, pos.Column, syntaxErr.Message
	}
	if line == 1 {
		column = max(column-len(jsPrologue), 1)
	}
	return parseError(EngineJS, expression, line, column, errors.New(message))
}

func (e *jsEvaluator) runtime(ctx RuleContext) (*goja.Runtime, error) {
	vm := goja.New()
	globals := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range ctx.Symbols {
		globals[key] = value
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			fn := name
			globals[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	for key, value := range globals {
		if err := vm.Set(key, value); err != nil {
			return nil, fmt.Errorf("set %q: %w", key, err)
		}
	}
	return vm, nil
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm, err := r.evaluator.runtime(ctx)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.originLabel(), err)
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.originLabel(), err)
	}
	return value.Export(), nil
}
