package opts

import (
	"testing"

	"github.com/goliatone/go-pkgtree/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var guardPos = document.Position{File: "pkgtree.yml", Line: 4, Column: 9}

func TestEngineGuardAcrossEngines(t *testing.T) {
	symbols := Symbols{
		SymbolTargetPlatform: "linux",
		SymbolEnv:            map[string]string{"CC": "clang"},
	}
	cases := []struct {
		engine string
		expr   string
		want   bool
	}{
		{EngineExpr, `target_platform == "linux"`, true},
		{EngineExpr, `target_platform == "windows"`, false},
		{EngineExpr, `env["CC"] == "clang"`, true},
		{EngineExpr, `platform_family(target_platform) == "posix"`, true},
		{EngineCEL, `target_platform == "linux"`, true},
		{EngineCEL, `target_platform != "linux"`, false},
		{EngineCEL, `platform_family(target_platform) == "posix"`, true},
		{EngineJS, `target_platform === "linux"`, true},
		{EngineJS, `env.CC === "clang" && target_platform !== "windows"`, true},
		{EngineJS, `platform_family(target_platform) === "windows"`, false},
	}

	for _, tc := range cases {
		engine, err := NewEngine(tc.engine)
		require.NoError(t, err, tc.engine)
		got, err := engine.Guard(symbols, tc.expr, guardPos)
		require.NoError(t, err, "%s %q", tc.engine, tc.expr)
		assert.Equal(t, tc.want, got, "%s %q", tc.engine, tc.expr)
	}
}

func TestEngineGuardParseErrorCarriesPosition(t *testing.T) {
	for _, name := range []string{EngineExpr, EngineCEL, EngineJS} {
		engine, err := NewEngine(name)
		require.NoError(t, err, name)
		_, err = engine.Guard(Symbols{SymbolTargetPlatform: "linux"}, `target_platform ==`, guardPos)
		var parseErr *ExpressionParseError
		require.ErrorAs(t, err, &parseErr, name)
		assert.Equal(t, guardPos, parseErr.Pos, name)
		assert.Equal(t, name, parseErr.Engine)
	}
}

func TestEngineGuardRequiresBoolean(t *testing.T) {
	engine, err := NewEngine(EngineExpr)
	require.NoError(t, err)
	_, err = engine.Guard(Symbols{SymbolTargetPlatform: "linux"}, `target_platform`, guardPos)
	var fieldErr *document.FieldValueError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, guardPos, fieldErr.Pos)
}

func TestEngineEvaluateValue(t *testing.T) {
	engine, err := NewEngine("")
	require.NoError(t, err)
	assert.Equal(t, EngineExpr, engine.Name(), "expr is the default engine")

	got, err := engine.Evaluate(RuleContext{Symbols: Symbols{"jobs": 4}}, `jobs * 2`, false)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestNewEngineRejectsUnknownName(t *testing.T) {
	_, err := NewEngine("lua")
	assert.ErrorIs(t, err, ErrNoEvaluator)
}

func TestEngineLogsEvaluations(t *testing.T) {
	var events []EvaluatorLogEvent
	engine, err := NewEngine(EngineExpr, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))
	require.NoError(t, err)
	_, err = engine.Guard(Symbols{}, `true`, guardPos)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, guardPos.String(), events[0].Origin)
	assert.Equal(t, true, events[0].Result)
}

func TestCustomFunctionsAreCallable(t *testing.T) {
	engine, err := NewEngine(EngineExpr, WithCustomFunction("double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}))
	require.NoError(t, err)
	got, err := engine.Evaluate(RuleContext{}, `double(21) == 42 && platform_family("windows") == "windows"`, true)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}
