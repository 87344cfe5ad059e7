// SPDX-License-Identifier: Unlicense OR MIT

package spirv_test

import (
	"encoding/binary"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/shader"
	"tida.dev/shader/spirv"
	"tida.dev/shader/spirv/spirvtest"
)

func TestParse(t *testing.T) {
	m, err := spirv.Parse(spirvtest.UniformShader())
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00010000), m.Version)
	eps := m.EntryPoints()
	require.Len(t, eps, 1)
	assert.Equal(t, "main", eps[0].Name)
	assert.Equal(t, spirv.ExecutionFragment, eps[0].Model)
	assert.Equal(t, "main", m.Name(eps[0].Function))
}

func TestParseBigEndian(t *testing.T) {
	code := spirvtest.UniformShader()
	swapped := make([]byte, len(code))
	for i := 0; i < len(code); i += 4 {
		w := binary.LittleEndian.Uint32(code[i:])
		binary.LittleEndian.PutUint32(swapped[i:], bits.ReverseBytes32(w))
	}
	want, err := spirv.Reflect(code)
	require.NoError(t, err)
	got, err := spirv.Reflect(swapped)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseErrors(t *testing.T) {
	code := spirvtest.UniformShader()
	badLen := append([]byte(nil), code...)
	// Claim the first instruction runs past the end.
	binary.LittleEndian.PutUint32(badLen[20:], 0xffff0011)
	tests := map[string][]byte{
		"empty":     nil,
		"unaligned": code[:len(code)-1],
		"magic":     append([]byte{0, 0, 0, 0}, code[4:]...),
		"header":    code[:12],
		"length":    badLen,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := spirv.Parse(data)
			assert.ErrorIs(t, err, shader.ErrReflection)
		})
	}
}

func TestUniformBuffers(t *testing.T) {
	m, err := spirv.Parse(spirvtest.UniformShader())
	require.NoError(t, err)
	ubos, err := m.UniformBuffers()
	require.NoError(t, err)
	require.Len(t, ubos, 3)

	params := ubos[0]
	assert.Equal(t, "params", params.Name)
	assert.Equal(t, spirvtest.ParamsBinding, params.Binding)
	assert.Equal(t, []shader.Range{{Offset: 0, Size: 16}, {Offset: 32, Size: 64}}, params.Ranges)
	assert.Equal(t, "color", m.MemberName(params.Type, 0))

	extra := ubos[1]
	assert.Equal(t, spirvtest.ExtraBinding, extra.Binding)
	assert.Equal(t, []shader.Range{{Offset: 0, Size: 4}}, extra.Ranges)

	assert.Equal(t, spirvtest.UnusedBinding, ubos[2].Binding)
	assert.Empty(t, ubos[2].Ranges)
}

func TestReflect(t *testing.T) {
	blocks, err := spirv.Reflect(spirvtest.UniformShader())
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, spirvtest.ParamsBinding, blocks[0].Binding)
	assert.Equal(t, 80, blocks[0].Size)
	assert.Equal(t, spirvtest.ExtraBinding, blocks[1].Binding)
	assert.Equal(t, 16, blocks[1].Size)
	assert.Equal(t, 0, blocks[2].Size)
}

func TestReflectMissingOffset(t *testing.T) {
	b := spirvtest.NewBuilder(12)
	b.Op(71, 3, 2)       // Block
	b.Op(22, 1, 32)      // float
	b.Op(30, 3, 1)       // struct { float }
	b.Op(32, 4, 2, 3)    // pointer to Uniform struct
	b.Op(59, 4, 5, 2)    // variable
	b.Op(19, 7)          // void
	b.Op(33, 8, 7)       // void()
	b.Op(54, 7, 9, 0, 8) // function
	b.Op(248, 10)        // label
	b.Op(61, 3, 6, 5)    // load whole block
	b.Op(253)            // return
	b.Op(56)             // function end
	_, err := spirv.Reflect(b.Bytes())
	assert.ErrorIs(t, err, shader.ErrReflection)
}

// blockModule assembles a fragment shader loading the Block struct
// variable 5 of type 3, after the type declarations in types.
func blockModule(types func(b *spirvtest.Builder)) []byte {
	b := spirvtest.NewBuilder(100)
	b.Op(71, 3, 2)        // Block
	b.Op(72, 3, 0, 35, 0) // member 0 Offset 0
	types(b)
	b.Op(32, 4, 2, 3)    // pointer to Uniform struct
	b.Op(59, 4, 5, 2)    // variable
	b.Op(19, 7)          // void
	b.Op(33, 8, 7)       // void()
	b.Op(54, 7, 9, 0, 8) // function
	b.Op(248, 10)        // label
	b.Op(61, 3, 6, 5)    // load whole block
	b.Op(253)            // return
	b.Op(56)             // function end
	return b.Bytes()
}

func TestReflectCyclicTypes(t *testing.T) {
	tests := map[string]func(b *spirvtest.Builder){
		"struct member is itself": func(b *spirvtest.Builder) {
			b.Op(30, 3, 3)
		},
		"vector of itself": func(b *spirvtest.Builder) {
			b.Op(23, 11, 11, 4)
			b.Op(30, 3, 11)
		},
		"redefined id": func(b *spirvtest.Builder) {
			b.Op(22, 3, 32)
			b.Op(30, 3, 3)
		},
		"member declared later": func(b *spirvtest.Builder) {
			b.Op(30, 3, 11)
			b.Op(22, 11, 32)
		},
	}
	for name, types := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := spirv.Reflect(blockModule(types))
			assert.ErrorIs(t, err, shader.ErrReflection)
		})
	}
}

func TestReflectNestingLimit(t *testing.T) {
	code := blockModule(func(b *spirvtest.Builder) {
		// A chain of single member structs 20..89 around a float.
		b.Op(22, 20, 32)
		for id := uint32(21); id < 90; id++ {
			b.Op(72, id, 0, 35, 0)
			b.Op(30, id, id-1)
		}
		b.Op(30, 3, 89)
	})
	_, err := spirv.Reflect(code)
	assert.ErrorIs(t, err, shader.ErrReflection)
}

func TestReflectForwardPointer(t *testing.T) {
	code := blockModule(func(b *spirvtest.Builder) {
		b.Op(39, 11, 5349) // forward pointer, PhysicalStorageBuffer
		b.Op(30, 3, 11)
		b.Op(32, 11, 5349, 3)
	})
	blocks, err := spirv.Reflect(code)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 16, blocks[0].Size)
}
