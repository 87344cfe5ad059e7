// SPDX-License-Identifier: Unlicense OR MIT

package spvc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/shader"
	"tida.dev/shader/spvc"
	"tida.dev/shader/spvc/spvctest"
)

func TestCrossCompile(t *testing.T) {
	lib := &spvctest.Library{
		Source: "#version 430\nvoid main() {}\n",
		Uniforms: []shader.UniformBlockInfo{
			{Binding: 3, Size: 16},
			{Binding: 1, Size: 32},
		},
	}
	spvc.Init(lib)
	t.Cleanup(func() { require.NoError(t, spvc.Terminate()) })

	opts := spvc.Options{Dialect: spvc.GLSL, Version: 430}
	res, err := spvc.CrossCompile([]byte{1, 2, 3, 4}, opts)
	require.NoError(t, err)
	assert.Equal(t, lib.Source, res.Source)
	assert.Equal(t, []int{1, 3}, []int{res.Uniforms[0].Binding, res.Uniforms[1].Binding})
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, lib.Compiled)
	assert.Equal(t, []spvc.Options{opts}, lib.Options)
}

func TestCrossCompileErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := map[string]*spvctest.Library{
		"compiler": {CompilerErr: boom},
		"options":  {OptionsErr: boom},
		"compile":  {CompileErr: boom},
		"uniforms": {UniformsErr: boom},
	}
	for name, lib := range tests {
		t.Run(name, func(t *testing.T) {
			spvc.Init(lib)
			defer spvc.Terminate()
			_, err := spvc.CrossCompile(nil, spvc.Options{Dialect: spvc.HLSL, Version: 50})
			assert.ErrorIs(t, err, spvc.ErrCrossCompile)
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestTerminate(t *testing.T) {
	lib := &spvctest.Library{}
	spvc.Init(lib)
	l, err := spvc.Load()
	require.NoError(t, err)
	assert.Same(t, lib, l)
	require.NoError(t, spvc.Terminate())
	assert.True(t, lib.Closed)
	require.NoError(t, spvc.Terminate())
}
