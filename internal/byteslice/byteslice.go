// SPDX-License-Identifier: Unlicense OR MIT

// Package byteslice provides byte views of typed slices for uploading
// to native buffers and textures.
package byteslice

import (
	"unsafe"
)

// Float32 returns a byte view of s.
func Float32(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// Uint32 returns a byte view of s.
func Uint32(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// Float32s returns a float32 view of b. The length of b must be a multiple
// of 4 and b must be suitably aligned.
func Float32s(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// GoString converts a NUL-terminated C string to a Go string.
func GoString(s []byte) string {
	for i, v := range s {
		if v == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}
