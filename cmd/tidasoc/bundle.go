// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
	"golang.org/x/sync/errgroup"

	"tida.dev/shader"
	"tida.dev/shader/spirv"
)

// entryPoint is the entry point devices specialize.
const entryPoint = "main"

// Bundle is a compiled shader.
type Bundle struct {
	Name      string
	Container shader.Container
	// Previews maps dialects to source.
	Previews map[string]string
}

// Build compiles every shader of m and writes the containers and
// previews to the output directory. At most jobs shaders are compiled
// at once.
func (m *Manifest) Build(ctx context.Context, jobs int, log *slog.Logger) error {
	out := m.path(m.Out)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, s := range m.Shaders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(m.path(s.Source))
			if err != nil {
				return err
			}
			b, err := m.Compile(s, string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", s.Source, err)
			}
			if err := b.write(out); err != nil {
				return err
			}
			log.Info("compiled shader", "name", s.Name, "bytes", len(b.Container.Bytecode),
				"uniforms", len(b.Container.Uniforms), "samplers", b.Container.Samplers)
			return nil
		})
	}
	return g.Wait()
}

// Compile translates the WGSL source of s to SPIR-V and describes its
// uniform blocks and samplers.
func (m *Manifest) Compile(s Source, src string) (*Bundle, error) {
	module, err := lower(src)
	if err != nil {
		return nil, err
	}
	if err := checkEntryPoints(module); err != nil {
		return nil, err
	}
	stubs, err := uniformStubs(module)
	if err != nil {
		return nil, err
	}
	code, err := naga.CompileWithOptions(src, m.compileOptions())
	if err != nil {
		return nil, err
	}
	reflected, err := spirv.Reflect(code)
	if err != nil {
		return nil, err
	}
	b := &Bundle{
		Name: s.Name,
		Container: shader.Container{
			Bytecode: code,
			Uniforms: shader.MergeBlocks(stubs, reflected),
			Samplers: countSamplers(module),
		},
		Previews: make(map[string]string),
	}
	for _, p := range m.previews(s) {
		var out string
		switch p {
		case "glsl":
			out, err = previewGLSL(src, m.glslVersion())
		case "hlsl":
			out, err = previewHLSL(src)
		}
		if err != nil {
			return nil, fmt.Errorf("%s preview: %w", p, err)
		}
		b.Previews[p] = out
	}
	return b, nil
}

func (b *Bundle) write(dir string) error {
	data, err := shader.Encode(b.Container)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, b.Name+".tidaso"), data, 0o644); err != nil {
		return err
	}
	for dialect, src := range b.Previews {
		if err := os.WriteFile(filepath.Join(dir, b.Name+"."+dialect), []byte(src), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func lower(src string) (*ir.Module, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	return naga.LowerWithSource(ast, src)
}

func checkEntryPoints(module *ir.Module) error {
	if n := len(module.EntryPoints); n != 1 {
		return fmt.Errorf("want one entry point, got %d", n)
	}
	if name := module.EntryPoints[0].Name; name != entryPoint {
		return fmt.Errorf("entry point %q must be named %q", name, entryPoint)
	}
	return nil
}

// uniformStubs describes the uniform globals of module. Only the binding
// and the padded size are known before reflection.
func uniformStubs(module *ir.Module) ([]shader.UniformBlockInfo, error) {
	var stubs []shader.UniformBlockInfo
	for _, g := range module.GlobalVariables {
		if g.Space != ir.SpaceUniform || g.Binding == nil {
			continue
		}
		if g.Binding.Group != 0 {
			return nil, fmt.Errorf("uniform %s: group %d, only group 0 is supported", g.Name, g.Binding.Group)
		}
		size, err := typeSize(module, g.Type)
		if err != nil {
			return nil, fmt.Errorf("uniform %s: %w", g.Name, err)
		}
		stubs = append(stubs, shader.UniformBlockInfo{
			Binding: int(g.Binding.Binding),
			Size:    shader.Align(size, shader.UniformAlignment),
		})
	}
	return shader.SortBlocks(stubs), nil
}

func typeSize(module *ir.Module, h ir.TypeHandle) (int, error) {
	if int(h) >= len(module.Types) {
		return 0, fmt.Errorf("invalid type handle %d", h)
	}
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return int(t.Width), nil
	case ir.VectorType:
		return int(t.Size) * int(t.Scalar.Width), nil
	case ir.MatrixType:
		// Columns are vectors aligned to 16 bytes.
		return int(t.Columns) * shader.Align(int(t.Rows)*int(t.Scalar.Width), shader.UniformAlignment), nil
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0, fmt.Errorf("runtime sized array")
		}
		return int(t.Stride) * int(*t.Size.Constant), nil
	case ir.StructType:
		return int(t.Span), nil
	default:
		return 0, fmt.Errorf("unsupported uniform type %T", t)
	}
}

func countSamplers(module *ir.Module) int {
	n := 0
	for _, g := range module.GlobalVariables {
		if int(g.Type) >= len(module.Types) {
			continue
		}
		if _, ok := module.Types[g.Type].Inner.(ir.SamplerType); ok {
			n++
		}
	}
	return n
}

func previewGLSL(src string, version glsl.Version) (string, error) {
	module, err := lower(src)
	if err != nil {
		return "", err
	}
	out, _, err := glsl.Compile(module, glsl.Options{
		LangVersion: version,
		EntryPoint:  entryPoint,
	})
	return out, err
}

func previewHLSL(src string) (string, error) {
	module, err := lower(src)
	if err != nil {
		return "", err
	}
	opts := hlsl.DefaultOptions()
	opts.EntryPoint = entryPoint
	out, _, err := hlsl.Compile(module, opts)
	return out, err
}
