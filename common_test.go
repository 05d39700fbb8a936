package opts

import (
	"path/filepath"
	"testing"

	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionNode(t *testing.T, file, text, key string) document.Node {
	t.Helper()
	doc, err := document.Parse(file, []byte(text))
	require.NoError(t, err)
	node, ok := doc.Root.Get(key)
	require.True(t, ok, "%s: missing key %q", file, key)
	return node
}

func TestCommonFirstWriteWins(t *testing.T) {
	var common Common
	first := optionNode(t, "/work/b/pkgtree.yml", "target_platform: windows\n", "target_platform")
	second := optionNode(t, "/work/a/pkgtree.yml", "target_platform: linux\n", "target_platform")

	require.NoError(t, common.Apply("target_platform", first, "/work/b/pkgtree.yml"))
	require.NoError(t, common.Apply("target_platform", second, "/work/a/pkgtree.yml"))
	assert.Equal(t, "windows", common.TargetPlatform, "the first applied value wins")

	trace := common.Trace("target_platform")
	require.Len(t, trace.Layers, 2)
	effective, ok := trace.Effective()
	require.True(t, ok)
	assert.Equal(t, "/work/b/pkgtree.yml", effective.Origin)
	assert.False(t, trace.Layers[1].Applied)
}

func TestCommonMapsMergePerKey(t *testing.T) {
	var common Common
	strong := optionNode(t, "/work/pkgtree-local.yml", "env:\n  CC: clang\n", "env")
	weak := optionNode(t, "/work/pkgtree.yml", "env:\n  CC: gcc\n  CXX: g++\n", "env")
	require.NoError(t, common.Apply("env", strong, "/work/pkgtree-local.yml"))
	require.NoError(t, common.Apply("env", weak, "/work/pkgtree.yml"))
	assert.Equal(t, map[string]string{"CC": "clang", "CXX": "g++"}, common.Env)
}

func TestCommonDeployDirsAreAbsolute(t *testing.T) {
	var common Common
	node := optionNode(t, "/work/pkgtree.yml", "deploy_dirs:\n  prefix: out/install\n  bindir: /usr/bin\n", "deploy_dirs")
	require.NoError(t, common.Apply("deploy_dirs", node, "/work/pkgtree.yml"))
	assert.Equal(t, filepath.Join("/work", "out/install"), common.DeployDirs["prefix"], "relative to the document")
	assert.Equal(t, "/usr/bin", common.DeployDirs["bindir"])
}

func TestCommonRejectsUnknownField(t *testing.T) {
	var common Common
	node := optionNode(t, "pkgtree.yml", "jobs: 4\n", "jobs")
	err := common.Apply("jobs", node, "pkgtree.yml")
	var fieldErr *document.FieldValueError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, 1, fieldErr.Pos.Line)
}

func TestCommonSymbolsDefaultTargetPlatform(t *testing.T) {
	var common Common
	symbols := common.Symbols()
	assert.Equal(t, HostPlatform(), symbols[SymbolTargetPlatform])
	assert.IsType(t, map[string]string{}, symbols[SymbolEnv])
}

func TestCommonUpgradeRenamesDeployPaths(t *testing.T) {
	env := freezedry.Envelope{
		Type:    "common",
		Version: 1,
		Fields: map[string]any{
			"target_platform": "linux",
			"deploy_paths":    map[string]any{"prefix": "/opt"},
		},
	}
	common, err := freezedry.Rehydrate[*Common](nil, env)
	require.NoError(t, err)
	assert.Equal(t, "/opt", common.DeployDirs["prefix"])
	assert.Contains(t, env.Fields, "deploy_paths", "upgrade does not mutate the saved envelope")
}
