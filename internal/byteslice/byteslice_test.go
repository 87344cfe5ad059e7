// SPDX-License-Identifier: Unlicense OR MIT

package byteslice

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat32RoundTrip(t *testing.T) {
	in := []float32{1, -2.5, 0.125}
	b := Float32(in)
	assert.Len(t, b, 12)
	assert.Equal(t, math.Float32bits(-2.5), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, in, Float32s(b))
}

func TestEmpty(t *testing.T) {
	assert.Nil(t, Float32(nil))
	assert.Nil(t, Uint32(nil))
	assert.Nil(t, Float32s([]byte{1, 2}))
}

func TestGoString(t *testing.T) {
	assert.Equal(t, "abc", GoString([]byte("abc\x00def")))
	assert.Equal(t, "abc", GoString([]byte("abc")))
}
