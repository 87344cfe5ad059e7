// SPDX-License-Identifier: Unlicense OR MIT

package driver

import (
	"errors"
	"fmt"
	"image"

	gioshader "gioui.org/shader"
	"golang.org/x/image/draw"

	"tida.dev/shader"
)

// Device is the resource factory and binding state machine over a
// native graphics API. Binding state is single shot: every draw or
// dispatch clears the bound pipeline, vertex layout and textures.
type Device interface {
	Caps() Caps

	CreateBuffer(typ BufferType, usage BufferUsage) (Buffer, error)
	CreateVertexLayout() (VertexLayout, error)
	CreateTexture(dim TextureDim, filter TextureFilter, wrap TextureWrap) (Texture, error)
	CreateFrameBuffer() (FrameBuffer, error)
	CreateShaderStage(kind shader.StageKind) (ShaderStage, error)
	CreateShaderProgram() (ShaderProgram, error)
	CreateShaderPipeline() (ShaderPipeline, error)

	// MainFrameBuffer returns the default framebuffer of the context.
	MainFrameBuffer() FrameBuffer
	// SetFrameBuffer selects the render target. A nil f selects the
	// main framebuffer.
	SetFrameBuffer(f FrameBuffer)
	SetViewport(x, y, width, height int)
	SetClearColor(r, g, b, a float32)
	Clear()

	SetPipeline(p ShaderPipeline)
	SetVertexLayout(l VertexLayout)
	// BindTexture queues t for binding to unit.
	BindTexture(t Texture, unit int)
	// BindBuffer queues a storage buffer for the next dispatch.
	BindBuffer(b Buffer)

	// Begin binds the current framebuffer, viewport, vertex layout,
	// pipeline and queued textures.
	Begin()
	Draw(mode DrawMode, first, count int)
	// DrawIndexed draws count 32-bit indices starting at index offset.
	DrawIndexed(mode DrawMode, offset, count int)
	Compute()
	Present() error

	Release()
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Type() BufferType
	Size() int
	// SetData replaces the allocation with data.
	SetData(data []byte) error
	// SetSubData writes data at offset into the existing allocation.
	SetSubData(offset int, data []byte) error
	// Read returns a copy of the buffer contents.
	Read() ([]byte, error)
	// MapData maps the whole buffer. The slice is valid until UnmapData.
	MapData(access MapAccess) ([]byte, error)
	UnmapData() error
	Release()
}

// VertexLayout references a vertex buffer, an optional index buffer and
// describes the vertex attributes.
type VertexLayout interface {
	SetVertexBuffer(b Buffer) error
	SetIndexBuffer(b Buffer) error
	// AddAttribute fails if no vertex buffer is set.
	AddAttribute(a VertexAttrib) error
	Release()
}

// Texture is an image of one, two or three dimensions.
type Texture interface {
	Dim() TextureDim
	Size() (width, height, depth int)
	// Kind reports the kind of the last written data.
	Kind() DataKind
	// Storage allocates immutable storage. Unused dimensions must be 1.
	Storage(width, height, depth int) error
	// SubImage writes RGBA8 pixels.
	SubImage(r Region, pixels []byte) error
	// SubData writes RGBA32F texels.
	SubData(r Region, data []float32) error
	// Read returns the contents typed by Kind.
	Read() (TextureData, error)
	Release()
}

// FrameBuffer is a render target with at most one color attachment.
type FrameBuffer interface {
	Size() (width, height int)
	AttachTexture(t Texture) error
	AttachRenderbuffer(width, height int) error
	// ReadPixels reads RGBA8 pixels of src into pixels.
	ReadPixels(src image.Rectangle, pixels []byte) error
	Release()
}

// ShaderStage is a compiled shader for one stage kind.
type ShaderStage interface {
	Kind() shader.StageKind
	State() StageState
	// Load compiles a shader container or raw SPIR-V bytecode. A stage
	// can be loaded once.
	Load(code []byte) error
	// UniformBlocks returns the reflected uniform blocks sorted by
	// binding.
	UniformBlocks() []shader.UniformBlockInfo
	Release()
}

// ShaderProgram links attached stages and owns one uniform buffer per
// active uniform block.
type ShaderProgram interface {
	// Attach records s under its kind, replacing any previous stage of
	// that kind.
	Attach(s ShaderStage)
	Stage(kind shader.StageKind) ShaderStage
	// MainStage returns the first attached stage in vertex, fragment,
	// compute, geometry order.
	MainStage() ShaderStage
	Link() error
	// UniformBindings lists the active block bindings in ascending order.
	UniformBindings() []int
	UniformBuffer(binding int) Buffer
	SetUniformData(binding int, data []byte) error
	Release()
}

// ShaderPipeline combines separable programs, one per stage kind.
type ShaderPipeline interface {
	// SetProgram installs p under the kind of its main stage.
	SetProgram(p ShaderProgram) error
	Program(kind shader.StageKind) ShaderProgram
	Release()
}

// VertexAttrib describes a vertex attribute as laid out in a Buffer.
type VertexAttrib struct {
	Location int
	// Size is the number of components, 1 to 4.
	Size       int
	Type       gioshader.DataType
	Normalized bool
	Stride     int
	Offset     int
}

// Region is a box of texels. Unused dimensions have size 1.
type Region struct {
	X, Y, Z              int
	Width, Height, Depth int
}

// TextureData is the content of a texture. Pixels is set for DataColor,
// Floats for DataFloat.
type TextureData struct {
	Kind   DataKind
	Pixels []byte
	Floats []float32
}

type BufferType uint8

type BufferUsage uint8

type MapAccess uint8

type TextureDim uint8

type TextureFilter uint8

type TextureWrap uint8

type DataKind uint8

type DrawMode uint8

type StageState uint8

type Features uint

type Caps struct {
	// BottomLeftOrigin is true if the driver has the origin in the lower left
	// corner. The OpenGL driver returns true.
	BottomLeftOrigin bool
	Features         Features
	MaxTextureSize   int
	// GLSLVersion is the shading language version used for cross
	// compiled sources, such as 430.
	GLSLVersion int
}

const (
	BufferVertex BufferType = iota
	BufferIndex
	BufferUniform
	BufferTexel
	BufferStorage
)

const (
	UsageStatic BufferUsage = iota
	UsageDynamic
)

const (
	MapRead MapAccess = iota
	MapWrite
	MapReadWrite
)

const (
	Texture1D TextureDim = iota + 1
	Texture2D
	Texture3D
)

const (
	FilterNearest TextureFilter = iota
	FilterLinear
)

const (
	WrapClamp TextureWrap = iota
	WrapRepeat
)

const (
	DataNone DataKind = iota
	DataColor
	DataFloat
)

const (
	DrawPoints DrawMode = iota
	DrawLines
	DrawLineStrip
	DrawTriangles
	DrawTriangleStrip
	DrawTriangleFan
)

const (
	StageEmpty StageState = iota
	StageLoading
	StageCompiled
	StageFailed
)

const (
	// FeatureSPIRV is set if the device consumes SPIR-V directly.
	FeatureSPIRV Features = 1 << iota
	// FeatureSpecialization is set if SPIR-V entry points can be
	// specialized.
	FeatureSpecialization
	FeatureCompute
	FeatureSeparablePrograms
)

// FeaturesRequired is the feature set a device needs regardless of the
// shader path.
const FeaturesRequired = FeatureSeparablePrograms

var (
	// ErrCapabilityMissing reports a native function or extension the
	// context does not provide.
	ErrCapabilityMissing = errors.New("driver: capability missing")
	// ErrUnknownBinding reports uniform data for a binding the program
	// does not expose.
	ErrUnknownBinding = errors.New("driver: unknown uniform binding")
	// ErrMapped reports a write to a mapped buffer.
	ErrMapped      = errors.New("driver: buffer is mapped")
	ErrNotMapped   = errors.New("driver: buffer is not mapped")
	ErrContentLost = errors.New("buffer content lost")
	// ErrStageLoaded reports a second Load of a shader stage.
	ErrStageLoaded = errors.New("driver: shader stage already loaded")
)

// CompileError carries the native compiler log of a shader stage.
type CompileError struct {
	Stage shader.StageKind
	Log   string
}

// LinkError carries the native linker log of a program.
type LinkError struct {
	Log string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s error:\n%s", e.Stage, e.Log)
}

func (e *LinkError) Error() string {
	return "program error:\n" + e.Log
}

func (f Features) Has(feats Features) bool {
	return f&feats == feats
}

func (t BufferType) String() string {
	switch t {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	case BufferUniform:
		return "uniform"
	case BufferTexel:
		return "texel"
	case BufferStorage:
		return "storage"
	default:
		return fmt.Sprintf("BufferType(%d)", uint8(t))
	}
}

func (s StageState) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageLoading:
		return "loading"
	case StageCompiled:
		return "compiled"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("StageState(%d)", uint8(s))
	}
}

// DownloadImage reads r of f into an image with the origin in the upper
// left corner.
func DownloadImage(d Device, f FrameBuffer, r image.Rectangle) (*image.RGBA, error) {
	img := image.NewRGBA(r)
	if err := f.ReadPixels(r, img.Pix); err != nil {
		return nil, err
	}
	if d.Caps().BottomLeftOrigin {
		// OpenGL origin is in the lower-left corner. Flip the image to
		// match.
		flipImageY(r.Dx()*4, r.Dy(), img.Pix)
	}
	return img, nil
}

func flipImageY(stride, height int, pixels []byte) {
	row := make([]uint8, stride)
	for y := 0; y < height/2; y++ {
		y1 := height - y - 1
		dest := y1 * stride
		src := y * stride
		copy(row, pixels[dest:])
		copy(pixels[dest:], pixels[src:src+len(row)])
		copy(pixels[src:], row)
	}
}

// UploadImage writes img to a 2D texture at offset, converting it to
// RGBA if needed.
func UploadImage(t Texture, offset image.Point, img image.Image) error {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != rgba.Rect.Dx()*4 {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rectangle{Max: b.Size()})
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}
	size := rgba.Bounds().Size()
	start := rgba.PixOffset(rgba.Rect.Min.X, rgba.Rect.Min.Y)
	return t.SubImage(Region{
		X: offset.X, Y: offset.Y,
		Width: size.X, Height: size.Y, Depth: 1,
	}, rgba.Pix[start:start+size.X*size.Y*4])
}
