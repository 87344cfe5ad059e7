// SPDX-License-Identifier: Unlicense OR MIT

package shader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRaw(t *testing.T) {
	raw := []byte{0x03, 0x02, 0x23, 0x07, 1, 2, 3, 4}
	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, c.Bytecode)
	assert.Empty(t, c.Uniforms)
	assert.Zero(t, c.Samplers)
}

func TestContainerRoundTrip(t *testing.T) {
	code := make([]byte, 40)
	for i := range code {
		code[i] = byte(i)
	}
	in := Container{
		Bytecode: code,
		Native:   []byte("native"),
		Uniforms: []UniformBlockInfo{
			{Binding: 0, Size: 64},
			{Binding: 3, Size: 16},
			{Binding: 0xffff, Size: 1 << 20},
		},
		Samplers: 2,
	}
	data, err := Encode(in)
	require.NoError(t, err)
	require.True(t, IsContainer(data))

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, out.Bytecode, len(code))
	assert.Equal(t, code, out.Bytecode)
	assert.Equal(t, in.Native, out.Native)
	assert.Equal(t, in.Uniforms, out.Uniforms)
	assert.Equal(t, 2, out.Samplers)
	for _, u := range out.Uniforms {
		assert.Empty(t, u.Ranges)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := Encode(Container{Bytecode: []byte{1, 2, 3, 4}, Uniforms: []UniformBlockInfo{{Binding: 1, Size: 16}}})
	require.NoError(t, err)

	overrun := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(overrun[len(Signature):], 1000)

	unknown := append([]byte(nil), valid[:headerSize]...)
	binary.LittleEndian.PutUint32(unknown[len(Signature):], 0)
	binary.LittleEndian.PutUint32(unknown[len(Signature)+8:], 3)
	unknown = append(unknown, "XYZ"...)

	truncated := append([]byte(nil), valid[:headerSize]...)
	binary.LittleEndian.PutUint32(truncated[len(Signature):], 0)
	binary.LittleEndian.PutUint32(truncated[len(Signature)+8:], 5)
	truncated = append(truncated, "UNI\x01\x00"...)

	tests := map[string][]byte{
		"short header": []byte(Signature + "\x01\x00"),
		"overrun":      overrun,
		"unknown tag":  unknown,
		"truncated":    truncated,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.ErrorIs(t, err, ErrContainerDecode)
		})
	}
}

func TestEncodeBindingRange(t *testing.T) {
	_, err := Encode(Container{Uniforms: []UniformBlockInfo{{Binding: 1 << 16}}})
	assert.Error(t, err)
}
