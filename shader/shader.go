// SPDX-License-Identifier: Unlicense OR MIT

// Package shader describes compiled shader stages and the metadata the
// device needs to drive them: stage kinds, uniform block layouts and the
// shader container format.
package shader

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/exp/constraints"
)

// StageKind identifies a programmable pipeline stage.
type StageKind uint8

const (
	StageVertex StageKind = iota
	StageFragment
	StageGeometry
	StageCompute
)

// NumStages is the number of stage kinds.
const NumStages = 4

// UniformAlignment is the alignment in bytes applied to every active
// uniform range when sizing a uniform buffer.
const UniformAlignment = 16

var (
	// ErrContainerDecode reports a malformed shader container.
	ErrContainerDecode = errors.New("shader: container decode error")
	// ErrReflection reports bytecode that could not be parsed or whose
	// resources could not be enumerated.
	ErrReflection = errors.New("shader: reflection error")
)

// Range is a byte range within a uniform block.
type Range struct {
	Offset int
	Size   int
}

// UniformBlockInfo describes one uniform block of a shader stage.
type UniformBlockInfo struct {
	Binding int
	Ranges  []Range
	// Size is the allocation size of the block: the sum of the aligned
	// range sizes, or the declared size for container stubs.
	Size int
}

func (k StageKind) String() string {
	switch k {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageGeometry:
		return "geometry"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("StageKind(%d)", uint8(k))
	}
}

// Align rounds v up to a multiple of a.
func Align[T constraints.Integer](v, a T) T {
	if r := v % a; r != 0 {
		return v + a - r
	}
	return v
}

// BlockSize returns the allocation size for a block with the given
// active ranges. Each range is padded to UniformAlignment separately and
// overlapping ranges are counted more than once.
func BlockSize(ranges []Range) int {
	size := 0
	for _, r := range ranges {
		size += Align(r.Size, UniformAlignment)
	}
	return size
}

// NewUniformBlock returns the block for binding with the given active
// ranges and their aligned size.
func NewUniformBlock(binding int, ranges []Range) UniformBlockInfo {
	return UniformBlockInfo{
		Binding: binding,
		Ranges:  ranges,
		Size:    BlockSize(ranges),
	}
}

// MergeBlocks combines the blocks declared by a container with the blocks
// found by reflection. Declared blocks take the ranges and size of the
// reflected block with the same binding; declared blocks without a
// reflected counterpart keep their declared size. Reflected blocks that
// were not declared are kept as reflected. The result is sorted by
// binding.
func MergeBlocks(declared, reflected []UniformBlockInfo) []UniformBlockInfo {
	byBinding := make(map[int]UniformBlockInfo, len(reflected))
	for _, b := range reflected {
		byBinding[b.Binding] = b
	}
	merged := make([]UniformBlockInfo, 0, len(declared)+len(reflected))
	seen := make(map[int]bool, len(declared))
	for _, d := range declared {
		if r, ok := byBinding[d.Binding]; ok {
			d.Ranges = r.Ranges
			d.Size = r.Size
		}
		seen[d.Binding] = true
		merged = append(merged, d)
	}
	for _, r := range reflected {
		if !seen[r.Binding] {
			merged = append(merged, r)
		}
	}
	return SortBlocks(merged)
}

// SortBlocks sorts blocks by binding in place and returns them.
func SortBlocks(blocks []UniformBlockInfo) []UniformBlockInfo {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Binding < blocks[j].Binding
	})
	return blocks
}
