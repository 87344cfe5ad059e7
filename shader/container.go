// SPDX-License-Identifier: Unlicense OR MIT

package shader

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature starts every shader container. Data without it is raw
// SPIR-V bytecode.
const Signature = ".TIDASO\x00"

const headerSize = len(Signature) + 3*4

// Container is a decoded shader container.
type Container struct {
	// Bytecode is the SPIR-V module.
	Bytecode []byte
	// Native is an optional backend binary. The device ignores it.
	Native []byte
	// Uniforms are the declared uniform blocks, without ranges.
	Uniforms []UniformBlockInfo
	// Samplers is the number of sampler declarations consumed.
	Samplers int
}

var (
	tagUniform = [3]byte{'U', 'N', 'I'}
	tagSampler = [3]byte{'S', 'M', 'P'}
)

// IsContainer reports whether data starts with the container signature.
func IsContainer(data []byte) bool {
	return len(data) >= len(Signature) && string(data[:len(Signature)]) == Signature
}

// Decode decodes a shader container. Data without the signature is
// returned unchanged as the bytecode of an otherwise empty container.
func Decode(data []byte) (Container, error) {
	if !IsContainer(data) {
		return Container{Bytecode: data}, nil
	}
	if len(data) < headerSize {
		return Container{}, fmt.Errorf("%w: truncated header (%d bytes)", ErrContainerDecode, len(data))
	}
	hdr := data[len(Signature):headerSize]
	codeLen := uint64(binary.LittleEndian.Uint32(hdr[0:]))
	nativeLen := uint64(binary.LittleEndian.Uint32(hdr[4:]))
	bindLen := uint64(binary.LittleEndian.Uint32(hdr[8:]))
	if total := uint64(headerSize) + codeLen + nativeLen + bindLen; total > uint64(len(data)) {
		return Container{}, fmt.Errorf("%w: sections need %d bytes, have %d", ErrContainerDecode, total, len(data))
	}
	off := uint64(headerSize)
	c := Container{
		Bytecode: data[off : off+codeLen],
	}
	off += codeLen
	if nativeLen > 0 {
		c.Native = data[off : off+nativeLen]
	}
	off += nativeLen
	bindings := data[off : off+bindLen]
	for len(bindings) > 0 {
		if len(bindings) < 3 {
			return Container{}, fmt.Errorf("%w: truncated binding tag", ErrContainerDecode)
		}
		var tag [3]byte
		copy(tag[:], bindings)
		bindings = bindings[3:]
		switch tag {
		case tagUniform:
			if len(bindings) < 6 {
				return Container{}, fmt.Errorf("%w: truncated uniform record", ErrContainerDecode)
			}
			c.Uniforms = append(c.Uniforms, UniformBlockInfo{
				Binding: int(binary.LittleEndian.Uint16(bindings)),
				Size:    int(binary.LittleEndian.Uint32(bindings[2:])),
			})
			bindings = bindings[6:]
		case tagSampler:
			c.Samplers++
		default:
			return Container{}, fmt.Errorf("%w: unknown binding tag %q", ErrContainerDecode, tag[:])
		}
	}
	return c, nil
}

// Encode encodes c in the container format. Uniform records are written
// before sampler records. Binding ids must fit in 16 bits.
func Encode(c Container) ([]byte, error) {
	var bindings bytes.Buffer
	for _, u := range c.Uniforms {
		if u.Binding < 0 || u.Binding > 0xffff {
			return nil, fmt.Errorf("shader: uniform binding %d out of range", u.Binding)
		}
		if u.Size < 0 || uint64(u.Size) > 0xffffffff {
			return nil, fmt.Errorf("shader: uniform size %d out of range", u.Size)
		}
		var rec [9]byte
		copy(rec[:], tagUniform[:])
		binary.LittleEndian.PutUint16(rec[3:], uint16(u.Binding))
		binary.LittleEndian.PutUint32(rec[5:], uint32(u.Size))
		bindings.Write(rec[:])
	}
	for i := 0; i < c.Samplers; i++ {
		bindings.Write(tagSampler[:])
	}
	out := make([]byte, 0, headerSize+len(c.Bytecode)+len(c.Native)+bindings.Len())
	out = append(out, Signature...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(c.Bytecode)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(c.Native)))
	out = binary.LittleEndian.AppendUint32(out, uint32(bindings.Len()))
	out = append(out, c.Bytecode...)
	out = append(out, c.Native...)
	out = append(out, bindings.Bytes()...)
	return out, nil
}
