// SPDX-License-Identifier: Unlicense OR MIT

// Package spirv parses SPIR-V modules and reflects the uniform buffers
// they declare.
package spirv

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"tida.dev/shader"
)

// Magic is the first word of every SPIR-V module.
const Magic = 0x07230203

const headerWords = 5

// Opcodes used by the parser.
const (
	opName                = 5
	opMemberName          = 6
	opEntryPoint          = 15
	opTypeVoid            = 19
	opTypeBool            = 20
	opTypeInt             = 21
	opTypeFloat           = 22
	opTypeVector          = 23
	opTypeMatrix          = 24
	opTypeImage           = 25
	opTypeSampler         = 26
	opTypeSampledImage    = 27
	opTypeArray           = 28
	opTypeRuntimeArray    = 29
	opTypeStruct          = 30
	opTypeOpaque          = 31
	opTypePointer         = 32
	opTypeFunction        = 33
	opTypeForwardPointer  = 39
	opConstant            = 43
	opSpecConstant        = 50
	opFunction            = 54
	opFunctionEnd         = 56
	opFunctionCall        = 57
	opVariable            = 59
	opLoad                = 61
	opCopyMemory          = 63
	opAccessChain         = 65
	opInBoundsAccessChain = 66
	opPtrAccessChain      = 67
	opDecorate            = 71
	opMemberDecorate      = 72
)

// Decorations.
const (
	decBlock         = 2
	decRowMajor      = 4
	decArrayStride   = 6
	decMatrixStride  = 7
	decBinding       = 33
	decDescriptorSet = 34
	decOffset        = 35
)

// Storage classes.
const (
	StorageUniformConstant = 0
	StorageInput           = 1
	StorageUniform         = 2
	StorageOutput          = 3
	StorageStorageBuffer   = 12
)

// ExecutionModel is the stage an entry point runs in.
type ExecutionModel uint32

const (
	ExecutionVertex   ExecutionModel = 0
	ExecutionGeometry ExecutionModel = 3
	ExecutionFragment ExecutionModel = 4
	ExecutionCompute  ExecutionModel = 5
)

// EntryPoint is an OpEntryPoint declaration.
type EntryPoint struct {
	Model    ExecutionModel
	Function uint32
	Name     string
}

// Module is a parsed SPIR-V module.
type Module struct {
	Version uint32
	Bound   uint32

	entryPoints []EntryPoint
	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	decorations map[uint32]map[uint32][]uint32
	memberDecs  map[uint32]map[uint32]map[uint32][]uint32
	types       map[uint32]typeInfo
	constants   map[uint32]uint32
	variables   []variable
	functions   map[uint32]*function
}

type typeInfo struct {
	op      uint16
	width   uint32
	elem    uint32
	count   uint32
	storage uint32
	members []uint32
	// forward marks a pointer declared by OpTypeForwardPointer and not
	// yet defined.
	forward bool
}

type variable struct {
	id      uint32
	typ     uint32
	storage uint32
}

type function struct {
	body  []instruction
	calls []uint32
}

type instruction struct {
	op   uint16
	args []uint32
}

// Parse parses a SPIR-V module in either byte order.
func Parse(code []byte) (*Module, error) {
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", shader.ErrReflection, len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if len(words) < headerWords {
		return nil, fmt.Errorf("%w: truncated header", shader.ErrReflection)
	}
	switch words[0] {
	case Magic:
	case bits.ReverseBytes32(Magic):
		for i, w := range words {
			words[i] = bits.ReverseBytes32(w)
		}
	default:
		return nil, fmt.Errorf("%w: bad magic %#08x", shader.ErrReflection, words[0])
	}
	m := &Module{
		Version:     words[1],
		Bound:       words[3],
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		decorations: make(map[uint32]map[uint32][]uint32),
		memberDecs:  make(map[uint32]map[uint32]map[uint32][]uint32),
		types:       make(map[uint32]typeInfo),
		constants:   make(map[uint32]uint32),
		functions:   make(map[uint32]*function),
	}
	var fn *function
	for pos := headerWords; pos < len(words); {
		n := int(words[pos] >> 16)
		op := uint16(words[pos])
		if n == 0 || pos+n > len(words) {
			return nil, fmt.Errorf("%w: bad instruction length %d at word %d", shader.ErrReflection, n, pos)
		}
		inst := instruction{op: op, args: words[pos+1 : pos+n]}
		pos += n
		if err := m.decode(inst); err != nil {
			return nil, fmt.Errorf("%w: opcode %d: %v", shader.ErrReflection, op, err)
		}
		switch {
		case op == opFunction:
			if len(inst.args) < 2 {
				return nil, fmt.Errorf("%w: short OpFunction", shader.ErrReflection)
			}
			fn = &function{}
			m.functions[inst.args[1]] = fn
		case op == opFunctionEnd:
			fn = nil
		case fn != nil:
			fn.body = append(fn.body, inst)
			if op == opFunctionCall && len(inst.args) >= 3 {
				fn.calls = append(fn.calls, inst.args[2])
			}
		}
	}
	return m, nil
}

func (m *Module) decode(inst instruction) error {
	a := inst.args
	need := func(n int) error {
		if len(a) < n {
			return fmt.Errorf("want %d operands, got %d", n, len(a))
		}
		return nil
	}
	switch inst.op {
	case opName:
		if err := need(1); err != nil {
			return err
		}
		m.names[a[0]] = literalString(a[1:])
	case opMemberName:
		if err := need(2); err != nil {
			return err
		}
		if m.memberNames[a[0]] == nil {
			m.memberNames[a[0]] = make(map[uint32]string)
		}
		m.memberNames[a[0]][a[1]] = literalString(a[2:])
	case opEntryPoint:
		if err := need(3); err != nil {
			return err
		}
		m.entryPoints = append(m.entryPoints, EntryPoint{
			Model:    ExecutionModel(a[0]),
			Function: a[1],
			Name:     literalString(a[2:]),
		})
	case opTypeVoid, opTypeSampler, opTypeOpaque:
		if err := need(1); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op})
	case opTypeImage, opTypeSampledImage, opTypeFunction:
		if err := need(2); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op})
	case opTypeBool:
		if err := need(1); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, width: 32, count: 1})
	case opTypeInt, opTypeFloat:
		if err := need(2); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, width: a[1], count: 1})
	case opTypeVector, opTypeMatrix, opTypeArray:
		if err := need(3); err != nil {
			return err
		}
		if err := m.declared(a[1]); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, elem: a[1], count: a[2]})
	case opTypeRuntimeArray:
		if err := need(2); err != nil {
			return err
		}
		if err := m.declared(a[1]); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, elem: a[1]})
	case opTypeStruct:
		if err := need(1); err != nil {
			return err
		}
		if err := m.declared(a[1:]...); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, members: a[1:]})
	case opTypeForwardPointer:
		if err := need(2); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: opTypePointer, storage: a[1], forward: true})
	case opTypePointer:
		if err := need(3); err != nil {
			return err
		}
		if err := m.declared(a[2]); err != nil {
			return err
		}
		return m.defineType(a[0], typeInfo{op: inst.op, storage: a[1], elem: a[2]})
	case opConstant, opSpecConstant:
		if err := need(3); err != nil {
			return err
		}
		m.constants[a[1]] = a[2]
	case opVariable:
		if err := need(3); err != nil {
			return err
		}
		m.variables = append(m.variables, variable{typ: a[0], id: a[1], storage: a[2]})
	case opDecorate:
		if err := need(2); err != nil {
			return err
		}
		if m.decorations[a[0]] == nil {
			m.decorations[a[0]] = make(map[uint32][]uint32)
		}
		m.decorations[a[0]][a[1]] = a[2:]
	case opMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		s := m.memberDecs[a[0]]
		if s == nil {
			s = make(map[uint32]map[uint32][]uint32)
			m.memberDecs[a[0]] = s
		}
		if s[a[1]] == nil {
			s[a[1]] = make(map[uint32][]uint32)
		}
		s[a[1]][a[2]] = a[3:]
	}
	return nil
}

// defineType records the type with result id id. Types are defined once,
// except for pointers completing an OpTypeForwardPointer.
func (m *Module) defineType(id uint32, t typeInfo) error {
	if prev, ok := m.types[id]; ok && !(prev.forward && t.op == opTypePointer && !t.forward) {
		return fmt.Errorf("type %d redefined", id)
	}
	m.types[id] = t
	return nil
}

// declared checks that every id names an already defined type. Together
// with defineType this rules out cyclic type graphs.
func (m *Module) declared(ids ...uint32) error {
	for _, id := range ids {
		if _, ok := m.types[id]; !ok {
			return fmt.Errorf("type %d used before its declaration", id)
		}
	}
	return nil
}

// EntryPoints returns the module's entry points in declaration order.
func (m *Module) EntryPoints() []EntryPoint {
	return m.entryPoints
}

// Name returns the debug name of id, or "".
func (m *Module) Name(id uint32) string {
	return m.names[id]
}

// MemberName returns the debug name of a struct member, or "".
func (m *Module) MemberName(structID, member uint32) string {
	return m.memberNames[structID][member]
}

func (m *Module) decoration(id, dec uint32) ([]uint32, bool) {
	v, ok := m.decorations[id][dec]
	return v, ok
}

func (m *Module) memberDecoration(structID, member, dec uint32) ([]uint32, bool) {
	v, ok := m.memberDecs[structID][member][dec]
	return v, ok
}

// literalString decodes a nul-terminated UTF-8 literal packed into words.
func literalString(words []uint32) string {
	var b []byte
	for _, w := range words {
		for i := 0; i < 4; i++ {
			c := byte(w >> (8 * i))
			if c == 0 {
				return string(b)
			}
			b = append(b, c)
		}
	}
	return string(b)
}
