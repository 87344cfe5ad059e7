// SPDX-License-Identifier: Unlicense OR MIT

package spvc

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/shader"
)

const reflectJSON = `{
	"types": {
		"_10": {
			"name": "Params",
			"members": [
				{"name": "m", "type": "mat4", "offset": 32},
				{"name": "color", "type": "vec4", "offset": 0},
				{"name": "alpha", "type": "float", "offset": 16}
			]
		}
	},
	"ubos": [
		{"type": "_10", "name": "Params", "block_size": 96, "set": 0, "binding": 1}
	]
}`

func TestParseReflection(t *testing.T) {
	blocks, err := parseReflection([]byte(reflectJSON))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].Binding)
	assert.Equal(t, []shader.Range{{Offset: 0, Size: 16}, {Offset: 16, Size: 16}, {Offset: 32, Size: 64}}, blocks[0].Ranges)
	assert.Equal(t, 96, blocks[0].Size)
}

func TestParseReflectionUnknownType(t *testing.T) {
	_, err := parseReflection([]byte(`{"ubos": [{"type": "_1", "name": "X"}]}`))
	assert.Error(t, err)
}

func TestCompilerArgs(t *testing.T) {
	tests := []struct {
		opts Options
		want []string
	}{
		{Options{Dialect: GLSL, Version: 430}, []string{"--no-es", "--version", "430", "--separate-shader-objects", "m.spv"}},
		{Options{Dialect: GLSL, Version: 310, ES: true}, []string{"--es", "--version", "310", "--separate-shader-objects", "m.spv"}},
		{Options{Dialect: HLSL, Version: 50}, []string{"--hlsl", "--shader-model", "50", "m.spv"}},
	}
	for _, tt := range tests {
		c := &cliCompiler{path: "m.spv", opts: Options{Dialect: tt.opts.Dialect}}
		require.NoError(t, c.SetOptions(tt.opts))
		assert.Equal(t, tt.want, c.args())
	}
	c := &cliCompiler{opts: Options{Dialect: GLSL}}
	assert.Error(t, c.SetOptions(Options{Dialect: HLSL, Version: 50}))
	assert.Error(t, c.SetOptions(Options{Dialect: GLSL}))
}

func TestWorkDir(t *testing.T) {
	wd := WorkDir(t.TempDir())
	p := wd.Path("a", "spv")
	require.NoError(t, wd.WriteFile(p, []byte{1}))
	assert.FileExists(t, p)
}

// fakeTool stands in for spirv-cross. It fails unless every .spv argument
// exists.
const fakeTool = `#!/bin/sh
for a in "$@"; do
	case "$a" in
	*.spv) [ -f "$a" ] || exit 3 ;;
	esac
done
for a in "$@"; do
	case "$a" in
	--reflect) echo '{"ubos": []}'; exit 0 ;;
	esac
done
echo '#version 430'
`

func TestCLIRemovesModules(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "spirv-cross")
	require.NoError(t, os.WriteFile(bin, []byte(fakeTool), 0o755))
	cli, err := NewCLI(bin)
	require.NoError(t, err)
	t.Cleanup(func() { cli.Close() })

	for i := 0; i < 2; i++ {
		c, err := cli.Compiler([]byte{3, 2, 35, 7}, GLSL)
		require.NoError(t, err)
		require.NoError(t, c.SetOptions(Options{Dialect: GLSL, Version: 430}))
		src, err := c.Compile()
		require.NoError(t, err)
		assert.Equal(t, "#version 430\n", src)
		blocks, err := c.UniformBuffers()
		require.NoError(t, err)
		assert.Empty(t, blocks)
	}
	entries, err := os.ReadDir(string(cli.WorkDir))
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, cli.Close())
	assert.NoDirExists(t, string(cli.WorkDir))
}
