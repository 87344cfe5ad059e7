// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/internal/gl/gltest"
	"tida.dev/shader"
	"tida.dev/shader/spirv/spirvtest"
)

func TestNewDevice(t *testing.T) {
	t.Setenv("TIDA_GPU_NOSPIRV", "")
	f := gltest.New()
	f.Blocks = []gltest.Block{{Binding: spirvtest.ParamsBinding, Size: 80}}
	dev, err := NewDevice(OpenGL{Functions: f})
	require.NoError(t, err)
	defer dev.Release()

	caps := dev.Caps()
	assert.True(t, Supported(caps))
	assert.True(t, Native(caps))

	stage, err := dev.CreateShaderStage(shader.StageFragment)
	require.NoError(t, err)
	require.NoError(t, stage.Load(spirvtest.UniformShader()))
	prog, err := dev.CreateShaderProgram()
	require.NoError(t, err)
	prog.Attach(stage)
	require.NoError(t, prog.Link())
	require.NoError(t, prog.SetUniformData(spirvtest.ParamsBinding, make([]byte, 16)))
	assert.ErrorIs(t, prog.SetUniformData(3, nil), ErrUnknownBinding)
}

func TestSupported(t *testing.T) {
	assert.False(t, Supported(Caps{}))
	assert.True(t, Supported(Caps{Features: FeatureSeparablePrograms}))
	assert.False(t, Native(Caps{Features: FeatureSPIRV | FeatureSeparablePrograms}))
	assert.True(t, Native(Caps{Features: FeatureSPIRV | FeatureSpecialization}))
}
