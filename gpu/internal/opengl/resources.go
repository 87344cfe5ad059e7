// SPDX-License-Identifier: Unlicense OR MIT

package opengl

import (
	"errors"
	"fmt"
	"image"

	gioshader "gioui.org/shader"

	"tida.dev/gpu/internal/driver"
	"tida.dev/internal/byteslice"
	"tida.dev/internal/gl"
)

type gpuBuffer struct {
	backend     *Backend
	obj         gl.Buffer
	typ         driver.BufferType
	usage       driver.BufferUsage
	size        int
	initialized bool
	mapped      bool
}

type gpuVertexLayout struct {
	backend *Backend
	obj     gl.VertexArray
	vertex  *gpuBuffer
	index   *gpuBuffer
	attribs []driver.VertexAttrib
	dirty   bool
}

type gpuTexture struct {
	backend *Backend
	obj     gl.Texture
	dim     driver.TextureDim
	target  gl.Enum
	width   int
	height  int
	depth   int
	kind    driver.DataKind
}

type gpuFramebuffer struct {
	backend   *Backend
	obj       gl.Framebuffer
	tex       *gpuTexture
	renderBuf gl.Renderbuffer
	width     int
	height    int
	// foreign is set for the main framebuffer, which is owned by the
	// context.
	foreign bool
}

// textureFormat is the internal format of all textures. Both RGBA8 and
// float uploads convert to it.
const textureFormat = gl.RGBA32F

func (b *Backend) CreateBuffer(typ driver.BufferType, usage driver.BufferUsage) (driver.Buffer, error) {
	if typ > driver.BufferStorage {
		return nil, fmt.Errorf("opengl: invalid buffer type %d", typ)
	}
	glErr(b.funcs)
	buf := &gpuBuffer{backend: b, obj: b.funcs.CreateBuffer(), typ: typ, usage: usage}
	if err := glErr(b.funcs); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (b *gpuBuffer) Type() driver.BufferType {
	return b.typ
}

func (b *gpuBuffer) Size() int {
	return b.size
}

// bind binds the buffer for data transfers. All transfers go through
// ARRAY_BUFFER so they never change the element buffer of the bound
// vertex array.
func (b *gpuBuffer) bind() {
	b.backend.glstate.bindBuffer(b.backend.funcs, gl.ARRAY_BUFFER, b.obj)
}

func (b *gpuBuffer) SetData(data []byte) error {
	if b.mapped {
		return driver.ErrMapped
	}
	usage := gl.Enum(gl.STATIC_DRAW)
	if b.usage == driver.UsageDynamic {
		usage = gl.DYNAMIC_DRAW
	}
	b.bind()
	b.backend.funcs.BufferData(gl.ARRAY_BUFFER, len(data), usage, data)
	b.size = len(data)
	b.initialized = true
	return nil
}

func (b *gpuBuffer) SetSubData(offset int, data []byte) error {
	if b.mapped {
		return driver.ErrMapped
	}
	if !b.initialized {
		return errors.New("opengl: buffer has no storage")
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("opengl: write of %d bytes at %d overflows %d byte buffer", len(data), offset, b.size)
	}
	b.bind()
	b.backend.funcs.BufferSubData(gl.ARRAY_BUFFER, offset, data)
	return nil
}

func (b *gpuBuffer) Read() ([]byte, error) {
	m, err := b.MapData(driver.MapRead)
	if err != nil {
		return nil, err
	}
	data := append([]byte(nil), m...)
	return data, b.UnmapData()
}

func (b *gpuBuffer) MapData(access driver.MapAccess) ([]byte, error) {
	if b.mapped {
		return nil, driver.ErrMapped
	}
	if !b.initialized || b.size == 0 {
		return nil, errors.New("opengl: buffer has no storage")
	}
	var bits gl.Enum
	switch access {
	case driver.MapRead:
		bits = gl.MAP_READ_BIT
	case driver.MapWrite:
		bits = gl.MAP_WRITE_BIT
	case driver.MapReadWrite:
		bits = gl.MAP_READ_BIT | gl.MAP_WRITE_BIT
	default:
		panic("unsupported map access")
	}
	b.bind()
	m := b.backend.funcs.MapBufferRange(gl.ARRAY_BUFFER, 0, b.size, bits)
	if m == nil {
		return nil, fmt.Errorf("MapBufferRange: error %#x", b.backend.funcs.GetError())
	}
	b.mapped = true
	return m, nil
}

func (b *gpuBuffer) UnmapData() error {
	if !b.mapped {
		return driver.ErrNotMapped
	}
	b.mapped = false
	b.bind()
	if !b.backend.funcs.UnmapBuffer(gl.ARRAY_BUFFER) {
		return driver.ErrContentLost
	}
	return nil
}

func (b *gpuBuffer) Release() {
	if b.mapped {
		b.UnmapData()
	}
	if b.obj.Valid() {
		b.backend.glstate.deleteBuffer(b.backend.funcs, b.obj)
		b.obj = gl.Buffer{}
	}
}

func (b *Backend) CreateVertexLayout() (driver.VertexLayout, error) {
	return &gpuVertexLayout{backend: b, obj: b.funcs.CreateVertexArray()}, nil
}

func (l *gpuVertexLayout) SetVertexBuffer(buf driver.Buffer) error {
	gbuf := asBuffer(buf)
	if gbuf.typ != driver.BufferVertex {
		return fmt.Errorf("opengl: %s buffer is not a vertex buffer", gbuf.typ)
	}
	l.vertex = gbuf
	l.dirty = true
	return nil
}

func (l *gpuVertexLayout) SetIndexBuffer(buf driver.Buffer) error {
	gbuf := asBuffer(buf)
	if gbuf.typ != driver.BufferIndex {
		return fmt.Errorf("opengl: %s buffer is not an index buffer", gbuf.typ)
	}
	l.index = gbuf
	l.dirty = true
	return nil
}

func (l *gpuVertexLayout) AddAttribute(a driver.VertexAttrib) error {
	if l.vertex == nil {
		return errors.New("opengl: vertex attribute without a vertex buffer")
	}
	if a.Size < 1 || a.Size > 4 {
		return fmt.Errorf("opengl: invalid attribute size %d", a.Size)
	}
	if a.Location < 0 {
		return fmt.Errorf("opengl: invalid attribute location %d", a.Location)
	}
	l.attribs = append(l.attribs, a)
	l.dirty = true
	return nil
}

// bind binds the vertex array and specifies its attributes if they
// changed.
func (l *gpuVertexLayout) bind() {
	b := l.backend
	b.glstate.bindVertexArray(b.funcs, l.obj)
	if !l.dirty {
		return
	}
	l.dirty = false
	if l.vertex != nil {
		b.glstate.bindBuffer(b.funcs, gl.ARRAY_BUFFER, l.vertex.obj)
	}
	for _, a := range l.attribs {
		idx := gl.Attrib(a.Location)
		b.funcs.EnableVertexAttribArray(idx)
		switch a.Type {
		case gioshader.DataTypeFloat:
			b.funcs.VertexAttribPointer(idx, a.Size, gl.FLOAT, a.Normalized, a.Stride, a.Offset)
		case gioshader.DataTypeShort:
			b.funcs.VertexAttribPointer(idx, a.Size, gl.SHORT, a.Normalized, a.Stride, a.Offset)
		case gioshader.DataTypeInt:
			b.funcs.VertexAttribIPointer(idx, a.Size, gl.INT, a.Stride, a.Offset)
		default:
			panic("unsupported data type")
		}
	}
	if l.index != nil {
		// The element buffer binding is vertex array state.
		b.funcs.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, l.index.obj)
	}
}

func (l *gpuVertexLayout) Release() {
	if l.obj.Valid() {
		l.backend.glstate.deleteVertexArray(l.backend.funcs, l.obj)
		l.obj = gl.VertexArray{}
	}
	l.vertex, l.index, l.attribs = nil, nil, nil
}

func (b *Backend) CreateTexture(dim driver.TextureDim, filter driver.TextureFilter, wrap driver.TextureWrap) (driver.Texture, error) {
	var target gl.Enum
	switch dim {
	case driver.Texture1D:
		target = gl.TEXTURE_1D
	case driver.Texture2D:
		target = gl.TEXTURE_2D
	case driver.Texture3D:
		target = gl.TEXTURE_3D
	default:
		return nil, fmt.Errorf("opengl: invalid texture dimension %d", dim)
	}
	glErr(b.funcs)
	tex := &gpuTexture{backend: b, obj: b.funcs.CreateTexture(), dim: dim, target: target}
	tex.bind()
	f := toTexFilter(filter)
	b.funcs.TexParameteri(target, gl.TEXTURE_MAG_FILTER, f)
	b.funcs.TexParameteri(target, gl.TEXTURE_MIN_FILTER, f)
	w := toTexWrap(wrap)
	b.funcs.TexParameteri(target, gl.TEXTURE_WRAP_S, w)
	if dim >= driver.Texture2D {
		b.funcs.TexParameteri(target, gl.TEXTURE_WRAP_T, w)
	}
	if dim == driver.Texture3D {
		b.funcs.TexParameteri(target, gl.TEXTURE_WRAP_R, w)
	}
	if err := glErr(b.funcs); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

func toTexFilter(f driver.TextureFilter) int {
	switch f {
	case driver.FilterNearest:
		return gl.NEAREST
	case driver.FilterLinear:
		return gl.LINEAR
	default:
		panic("unsupported texture filter")
	}
}

func toTexWrap(w driver.TextureWrap) int {
	switch w {
	case driver.WrapClamp:
		return gl.CLAMP_TO_EDGE
	case driver.WrapRepeat:
		return gl.REPEAT
	default:
		panic("unsupported texture wrap")
	}
}

// bind binds the texture to unit 0 for updates.
func (t *gpuTexture) bind() {
	t.backend.glstate.bindTexture(t.backend.funcs, t.target, 0, t.obj)
}

func (t *gpuTexture) Dim() driver.TextureDim {
	return t.dim
}

func (t *gpuTexture) Size() (width, height, depth int) {
	return t.width, t.height, t.depth
}

func (t *gpuTexture) Kind() driver.DataKind {
	return t.kind
}

func (t *gpuTexture) Storage(width, height, depth int) error {
	if t.width != 0 {
		return errors.New("opengl: texture storage already allocated")
	}
	switch t.dim {
	case driver.Texture1D:
		height, depth = 1, 1
	case driver.Texture2D:
		depth = 1
	}
	if width <= 0 || height <= 0 || depth <= 0 {
		t.backend.log.Warn("Texture.Storage: zero sized texture", "width", width, "height", height, "depth", depth)
		return nil
	}
	if limit := t.backend.feats.MaxTextureSize; limit > 0 && (width > limit || height > limit || depth > limit) {
		return fmt.Errorf("opengl: texture size %dx%dx%d exceeds %d", width, height, depth, limit)
	}
	glErr(t.backend.funcs)
	t.bind()
	f := t.backend.funcs
	switch t.dim {
	case driver.Texture1D:
		f.TexStorage1D(t.target, 1, textureFormat, width)
	case driver.Texture2D:
		f.TexStorage2D(t.target, 1, textureFormat, width, height)
	case driver.Texture3D:
		f.TexStorage3D(t.target, 1, textureFormat, width, height, depth)
	}
	if err := glErr(f); err != nil {
		return err
	}
	t.width, t.height, t.depth = width, height, depth
	return nil
}

func (t *gpuTexture) texels(r driver.Region) (int, error) {
	if t.width == 0 {
		return 0, errors.New("opengl: texture has no storage")
	}
	if r.X < 0 || r.Y < 0 || r.Z < 0 || r.Width < 0 || r.Height < 0 || r.Depth < 0 ||
		r.X+r.Width > t.width || r.Y+r.Height > t.height || r.Z+r.Depth > t.depth {
		return 0, fmt.Errorf("opengl: region %+v outside %dx%dx%d texture", r, t.width, t.height, t.depth)
	}
	return r.Width * r.Height * r.Depth, nil
}

func (t *gpuTexture) upload(r driver.Region, ty gl.Enum, data []byte) {
	t.bind()
	f := t.backend.funcs
	switch t.dim {
	case driver.Texture1D:
		f.TexSubImage1D(t.target, 0, r.X, r.Width, gl.RGBA, ty, data)
	case driver.Texture2D:
		f.TexSubImage2D(t.target, 0, r.X, r.Y, r.Width, r.Height, gl.RGBA, ty, data)
	case driver.Texture3D:
		f.TexSubImage3D(t.target, 0, r.X, r.Y, r.Z, r.Width, r.Height, r.Depth, gl.RGBA, ty, data)
	}
}

func (t *gpuTexture) SubImage(r driver.Region, pixels []byte) error {
	n, err := t.texels(r)
	if err != nil {
		return err
	}
	if min := n * 4; min > len(pixels) {
		return fmt.Errorf("opengl: size %d larger than data %d", min, len(pixels))
	}
	t.upload(r, gl.UNSIGNED_BYTE, pixels)
	t.kind = driver.DataColor
	return nil
}

func (t *gpuTexture) SubData(r driver.Region, data []float32) error {
	n, err := t.texels(r)
	if err != nil {
		return err
	}
	if min := n * 4; min > len(data) {
		return fmt.Errorf("opengl: size %d larger than data %d", min, len(data))
	}
	t.upload(r, gl.FLOAT, byteslice.Float32(data))
	t.kind = driver.DataFloat
	return nil
}

func (t *gpuTexture) Read() (driver.TextureData, error) {
	n := t.width * t.height * t.depth * 4
	t.bind()
	switch t.kind {
	case driver.DataColor:
		pix := make([]byte, n)
		t.backend.funcs.GetTexImage(t.target, 0, gl.RGBA, gl.UNSIGNED_BYTE, pix)
		return driver.TextureData{Kind: t.kind, Pixels: pix}, nil
	case driver.DataFloat:
		data := make([]float32, n)
		t.backend.funcs.GetTexImage(t.target, 0, gl.RGBA, gl.FLOAT, byteslice.Float32(data))
		return driver.TextureData{Kind: t.kind, Floats: data}, nil
	default:
		return driver.TextureData{}, errors.New("opengl: texture has no data")
	}
}

func (t *gpuTexture) Release() {
	if t.obj.Valid() {
		t.backend.glstate.deleteTexture(t.backend.funcs, t.obj)
		t.obj = gl.Texture{}
	}
}

func (b *Backend) CreateFrameBuffer() (driver.FrameBuffer, error) {
	glErr(b.funcs)
	fbo := &gpuFramebuffer{backend: b, obj: b.funcs.CreateFramebuffer()}
	if err := glErr(b.funcs); err != nil {
		fbo.Release()
		return nil, err
	}
	return fbo, nil
}

func (f *gpuFramebuffer) Size() (width, height int) {
	if f.foreign {
		v := f.backend.state.viewport
		return v[2], v[3]
	}
	return f.width, f.height
}

// detach drops the current attachment. An owned renderbuffer is deleted.
func (f *gpuFramebuffer) detach() {
	if f.renderBuf.Valid() {
		f.backend.glstate.deleteRenderbuffer(f.backend.funcs, f.renderBuf)
		f.renderBuf = gl.Renderbuffer{}
	}
	f.tex = nil
	f.width, f.height = 0, 0
}

func (f *gpuFramebuffer) complete() error {
	if st := f.backend.funcs.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("incomplete framebuffer, status = 0x%x, err = %d", st, f.backend.funcs.GetError())
	}
	return nil
}

func (f *gpuFramebuffer) AttachTexture(t driver.Texture) error {
	if f.foreign {
		return errors.New("opengl: cannot attach to the main framebuffer")
	}
	tex := asTexture(t)
	if tex.dim != driver.Texture2D || tex.width == 0 {
		return errors.New("opengl: framebuffer attachment must be a 2D texture with storage")
	}
	b := f.backend
	f.detach()
	b.glstate.bindFramebuffer(b.funcs, gl.FRAMEBUFFER, f.obj)
	b.funcs.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, tex.obj, 0)
	if err := f.complete(); err != nil {
		return err
	}
	f.tex = tex
	f.width, f.height = tex.width, tex.height
	return nil
}

func (f *gpuFramebuffer) AttachRenderbuffer(width, height int) error {
	if f.foreign {
		return errors.New("opengl: cannot attach to the main framebuffer")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("opengl: invalid renderbuffer size %dx%d", width, height)
	}
	b := f.backend
	f.detach()
	rb := b.funcs.CreateRenderbuffer()
	b.glstate.bindRenderbuffer(b.funcs, rb)
	b.funcs.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, width, height)
	b.glstate.bindFramebuffer(b.funcs, gl.FRAMEBUFFER, f.obj)
	b.funcs.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, rb)
	f.renderBuf = rb
	if err := f.complete(); err != nil {
		f.detach()
		return err
	}
	f.width, f.height = width, height
	return nil
}

func (f *gpuFramebuffer) ReadPixels(src image.Rectangle, pixels []byte) error {
	b := f.backend
	glErr(b.funcs)
	if len(pixels) < src.Dx()*src.Dy()*4 {
		return errors.New("unexpected RGBA size")
	}
	b.glstate.bindFramebuffer(b.funcs, gl.READ_FRAMEBUFFER, f.obj)
	b.funcs.ReadPixels(src.Min.X, src.Min.Y, src.Dx(), src.Dy(), gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	return glErr(b.funcs)
}

func (f *gpuFramebuffer) Release() {
	if f.foreign {
		f.backend.log.Warn("FrameBuffer.Release: the main framebuffer is owned by the context")
		return
	}
	b := f.backend
	f.detach()
	if f.obj.Valid() {
		b.glstate.deleteFramebuffer(b.funcs, f.obj)
		f.obj = gl.Framebuffer{}
	}
	if b.state.fbo == f {
		b.state.fbo = b.mainFBO
	}
}
