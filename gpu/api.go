// SPDX-License-Identifier: Unlicense OR MIT

// Package gpu exposes a backend agnostic GPU device. Shader stages are
// loaded from SPIR-V bytecode, optionally wrapped in a container with
// uniform block stubs, and run natively or through cross compilation
// depending on the capabilities of the context.
//
// Cross compilation loads a process wide compiler library on first use.
// Releasing a device does not close it; call spvc.Terminate at shutdown.
package gpu

import (
	"fmt"

	"tida.dev/gpu/internal/driver"
	_ "tida.dev/gpu/internal/opengl"
	"tida.dev/internal/gl/gogl"
)

// An API carries the necessary GPU API specific resources to create a Device.
// There is an API type for each supported GPU API.
type API = driver.API

// OpenGL denotes the desktop OpenGL API, version 4.1 or later or with
// GL_ARB_separate_shader_objects.
type OpenGL = driver.OpenGL

// ContextProvider makes a native context current and presents frames.
type ContextProvider = driver.ContextProvider

type (
	Device         = driver.Device
	Buffer         = driver.Buffer
	VertexLayout   = driver.VertexLayout
	Texture        = driver.Texture
	FrameBuffer    = driver.FrameBuffer
	ShaderStage    = driver.ShaderStage
	ShaderProgram  = driver.ShaderProgram
	ShaderPipeline = driver.ShaderPipeline

	VertexAttrib = driver.VertexAttrib
	Region       = driver.Region
	TextureData  = driver.TextureData
	Caps         = driver.Caps
	Features     = driver.Features

	BufferType    = driver.BufferType
	BufferUsage   = driver.BufferUsage
	MapAccess     = driver.MapAccess
	TextureDim    = driver.TextureDim
	TextureFilter = driver.TextureFilter
	TextureWrap   = driver.TextureWrap
	DataKind      = driver.DataKind
	DrawMode      = driver.DrawMode
	StageState    = driver.StageState

	CompileError = driver.CompileError
	LinkError    = driver.LinkError
)

const (
	BufferVertex  = driver.BufferVertex
	BufferIndex   = driver.BufferIndex
	BufferUniform = driver.BufferUniform
	BufferTexel   = driver.BufferTexel
	BufferStorage = driver.BufferStorage

	UsageStatic  = driver.UsageStatic
	UsageDynamic = driver.UsageDynamic

	MapRead      = driver.MapRead
	MapWrite     = driver.MapWrite
	MapReadWrite = driver.MapReadWrite

	Texture1D = driver.Texture1D
	Texture2D = driver.Texture2D
	Texture3D = driver.Texture3D

	FilterNearest = driver.FilterNearest
	FilterLinear  = driver.FilterLinear
	WrapClamp     = driver.WrapClamp
	WrapRepeat    = driver.WrapRepeat

	DataNone  = driver.DataNone
	DataColor = driver.DataColor
	DataFloat = driver.DataFloat

	DrawPoints        = driver.DrawPoints
	DrawLines         = driver.DrawLines
	DrawLineStrip     = driver.DrawLineStrip
	DrawTriangles     = driver.DrawTriangles
	DrawTriangleStrip = driver.DrawTriangleStrip
	DrawTriangleFan   = driver.DrawTriangleFan

	StageEmpty    = driver.StageEmpty
	StageLoading  = driver.StageLoading
	StageCompiled = driver.StageCompiled
	StageFailed   = driver.StageFailed

	FeatureSPIRV             = driver.FeatureSPIRV
	FeatureSpecialization    = driver.FeatureSpecialization
	FeatureCompute           = driver.FeatureCompute
	FeatureSeparablePrograms = driver.FeatureSeparablePrograms
)

var (
	ErrCapabilityMissing = driver.ErrCapabilityMissing
	ErrUnknownBinding    = driver.ErrUnknownBinding
	ErrMapped            = driver.ErrMapped
	ErrNotMapped         = driver.ErrNotMapped
	ErrContentLost       = driver.ErrContentLost
	ErrStageLoaded       = driver.ErrStageLoaded
)

// NewDevice creates a device for api. An OpenGL api without Functions
// loads the native entry points of its context.
//
// The device does not take ownership of the resources in api; the
// caller must keep them valid until the device is released.
func NewDevice(api API) (Device, error) {
	if gl, ok := api.(OpenGL); ok && gl.Functions == nil {
		if gl.Context != nil {
			if err := gl.Context.MakeCurrent(); err != nil {
				return nil, fmt.Errorf("gpu: make current: %w", err)
			}
		}
		f, err := gogl.Load()
		if err != nil {
			return nil, err
		}
		gl.Functions = f
		api = gl
	}
	return driver.NewDevice(api)
}

// Supported reports whether caps has the features every device needs,
// regardless of whether shaders run natively or cross compiled.
func Supported(caps Caps) bool {
	return caps.Features.Has(driver.FeaturesRequired)
}

// Native reports whether caps allow loading SPIR-V without cross
// compilation.
func Native(caps Caps) bool {
	return caps.Features.Has(FeatureSPIRV | FeatureSpecialization)
}
