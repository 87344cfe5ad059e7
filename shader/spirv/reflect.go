// SPDX-License-Identifier: Unlicense OR MIT

package spirv

import (
	"fmt"
	"sort"

	"tida.dev/shader"
)

// UniformBuffer is a uniform block variable.
type UniformBuffer struct {
	// ID is the variable's result id.
	ID uint32
	// Type is the id of the block struct.
	Type    uint32
	Name    string
	Set     int
	Binding int
	// Ranges are the active member ranges ordered by member index.
	Ranges []shader.Range
}

// Block returns the reflected block description of b.
func (b UniformBuffer) Block() shader.UniformBlockInfo {
	return shader.NewUniformBlock(b.Binding, b.Ranges)
}

// Reflect parses code and returns its uniform blocks sorted by binding.
func Reflect(code []byte) ([]shader.UniformBlockInfo, error) {
	m, err := Parse(code)
	if err != nil {
		return nil, err
	}
	ubos, err := m.UniformBuffers()
	if err != nil {
		return nil, err
	}
	blocks := make([]shader.UniformBlockInfo, len(ubos))
	for i, u := range ubos {
		blocks[i] = u.Block()
	}
	return shader.SortBlocks(blocks), nil
}

// UniformBuffers enumerates the variables in the Uniform storage class
// whose type is a Block decorated struct, in declaration order.
func (m *Module) UniformBuffers() ([]UniformBuffer, error) {
	used := m.accessedMembers()
	var ubos []UniformBuffer
	for _, v := range m.variables {
		if v.storage != StorageUniform {
			continue
		}
		ptr, ok := m.types[v.typ]
		if !ok || ptr.op != opTypePointer {
			return nil, fmt.Errorf("%w: resource enumeration failed: variable %d has no pointer type", shader.ErrReflection, v.id)
		}
		st, ok := m.types[ptr.elem]
		if !ok || st.op != opTypeStruct {
			continue
		}
		if _, ok := m.decoration(ptr.elem, decBlock); !ok {
			continue
		}
		u := UniformBuffer{
			ID:   v.id,
			Type: ptr.elem,
			Name: m.Name(v.id),
		}
		if d, ok := m.decoration(v.id, decBinding); ok && len(d) > 0 {
			u.Binding = int(d[0])
		}
		if d, ok := m.decoration(v.id, decDescriptorSet); ok && len(d) > 0 {
			u.Set = int(d[0])
		}
		members := used[v.id]
		if members == nil {
			members = &memberUse{}
		}
		if members.all {
			members.index = make(map[uint32]bool, len(st.members))
			for i := range st.members {
				members.index[uint32(i)] = true
			}
		}
		idx := make([]uint32, 0, len(members.index))
		for i := range members.index {
			idx = append(idx, i)
		}
		sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
		for _, i := range idx {
			r, err := m.memberRange(ptr.elem, i, 0)
			if err != nil {
				return nil, fmt.Errorf("%w: resource enumeration failed: %s member %d: %v", shader.ErrReflection, u.Name, i, err)
			}
			u.Ranges = append(u.Ranges, r)
		}
		ubos = append(ubos, u)
	}
	return ubos, nil
}

type memberUse struct {
	all   bool
	index map[uint32]bool
}

// accessedMembers records, per variable, the struct members reached from
// the first entry point's call graph. Constant index access chains mark a
// single member; loads, copies, non-constant chains and passing the
// variable to a function mark every member.
func (m *Module) accessedMembers() map[uint32]*memberUse {
	uses := make(map[uint32]*memberUse)
	use := func(id uint32) *memberUse {
		u := uses[id]
		if u == nil {
			u = &memberUse{index: make(map[uint32]bool)}
			uses[id] = u
		}
		return u
	}
	for _, fn := range m.reachableFunctions() {
		for _, inst := range fn.body {
			a := inst.args
			switch inst.op {
			case opAccessChain, opInBoundsAccessChain:
				if len(a) < 3 {
					continue
				}
				if len(a) == 3 {
					use(a[2]).all = true
					continue
				}
				if c, ok := m.constants[a[3]]; ok {
					use(a[2]).index[c] = true
				} else {
					use(a[2]).all = true
				}
			case opPtrAccessChain:
				if len(a) >= 3 {
					use(a[2]).all = true
				}
			case opLoad:
				if len(a) >= 3 {
					use(a[2]).all = true
				}
			case opCopyMemory:
				if len(a) >= 2 {
					use(a[0]).all = true
					use(a[1]).all = true
				}
			case opFunctionCall:
				for _, arg := range a[min(3, len(a)):] {
					use(arg).all = true
				}
			}
		}
	}
	return uses
}

func (m *Module) reachableFunctions() []*function {
	if len(m.entryPoints) == 0 {
		fns := make([]*function, 0, len(m.functions))
		for _, fn := range m.functions {
			fns = append(fns, fn)
		}
		return fns
	}
	seen := make(map[uint32]bool)
	var fns []*function
	var visit func(id uint32)
	visit = func(id uint32) {
		if seen[id] {
			return
		}
		seen[id] = true
		fn, ok := m.functions[id]
		if !ok {
			return
		}
		fns = append(fns, fn)
		for _, c := range fn.calls {
			visit(c)
		}
	}
	visit(m.entryPoints[0].Function)
	return fns
}

// maxTypeDepth bounds the nesting of types sized by typeSize.
const maxTypeDepth = 64

func (m *Module) memberRange(structID, member uint32, depth int) (shader.Range, error) {
	off, ok := m.memberDecoration(structID, member, decOffset)
	if !ok || len(off) == 0 {
		return shader.Range{}, fmt.Errorf("missing Offset decoration")
	}
	size, err := m.memberSize(structID, member, depth)
	if err != nil {
		return shader.Range{}, err
	}
	return shader.Range{Offset: int(off[0]), Size: size}, nil
}

// memberSize returns the declared size of a struct member following the
// explicit layout decorations.
func (m *Module) memberSize(structID, member uint32, depth int) (int, error) {
	st := m.types[structID]
	if int(member) >= len(st.members) {
		return 0, fmt.Errorf("member index %d out of range", member)
	}
	id := st.members[member]
	t, ok := m.types[id]
	if !ok {
		return 0, fmt.Errorf("unknown type %d", id)
	}
	if t.op == opTypeMatrix {
		stride, ok := m.memberDecoration(structID, member, decMatrixStride)
		if !ok || len(stride) == 0 {
			return 0, fmt.Errorf("matrix without MatrixStride")
		}
		n := t.count
		if _, rowMajor := m.memberDecoration(structID, member, decRowMajor); rowMajor {
			n = m.types[t.elem].count
		}
		return int(stride[0] * n), nil
	}
	return m.typeSize(id, depth+1)
}

func (m *Module) typeSize(id uint32, depth int) (int, error) {
	if depth > maxTypeDepth {
		return 0, fmt.Errorf("type %d nested deeper than %d", id, maxTypeDepth)
	}
	t, ok := m.types[id]
	if !ok {
		return 0, fmt.Errorf("unknown type %d", id)
	}
	switch t.op {
	case opTypeBool, opTypeInt, opTypeFloat:
		return int(t.width / 8), nil
	case opTypeVector:
		elem, err := m.typeSize(t.elem, depth+1)
		if err != nil {
			return 0, err
		}
		return elem * int(t.count), nil
	case opTypeArray:
		stride, ok := m.decoration(id, decArrayStride)
		if !ok || len(stride) == 0 {
			return 0, fmt.Errorf("array %d without ArrayStride", id)
		}
		n, ok := m.constants[t.count]
		if !ok {
			return 0, fmt.Errorf("array %d length is not a constant", id)
		}
		return int(stride[0] * n), nil
	case opTypeRuntimeArray:
		return 0, nil
	case opTypeStruct:
		if len(t.members) == 0 {
			return 0, nil
		}
		last := uint32(len(t.members) - 1)
		r, err := m.memberRange(id, last, depth)
		if err != nil {
			return 0, err
		}
		return r.Offset + r.Size, nil
	case opTypePointer:
		return 8, nil
	default:
		return 0, fmt.Errorf("type %d has no size", id)
	}
}
