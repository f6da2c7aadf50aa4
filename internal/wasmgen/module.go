// Package wasmgen encodes small core WebAssembly modules. It covers the subset
// needed to synthesize engine modules for tests and diagnostics: function
// imports, one memory, i32 globals, exports and function bodies.
package wasmgen

const (
	magic   uint32 = 0x6D736100
	version uint32 = 0x01
)

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// Export kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
	KindGlobal byte = 3
)

// ValType is a value type encoding.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
	F32 ValType = 0x7D
	F64 ValType = 0x7C
)

const funcTypeByte = 0x60

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Limits bounds a memory in 64KiB pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// Global is an i32 global with a constant initializer.
type Global struct {
	Init    int32
	Mutable bool
}

// Export names a module item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Local declares Count locals of one type.
type Local struct {
	Count uint32
	Type  ValType
}

// FuncBody is a function's locals and instruction bytes, which must end with
// the end opcode.
type FuncBody struct {
	Locals []Local
	Code   []byte
}

// Module is an encodable module.
type Module struct {
	Memory  *Limits
	Types   []FuncType
	Imports []Import
	Funcs   []uint32
	Globals []Global
	Exports []Export
	Code    []FuncBody
}

// TypeIndex returns the index of ft, adding it if needed.
func (m *Module) TypeIndex(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// ImportFunc adds a function import and returns its function index. Imports
// must be added before any defined function.
func (m *Module) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(m.Funcs) > 0 {
		panic("wasmgen: imports must precede defined functions")
	}
	m.Imports = append(m.Imports, Import{Module: module, Name: name, TypeIdx: m.TypeIndex(ft)})
	return uint32(len(m.Imports) - 1)
}

// AddGlobal adds an i32 global and returns its index.
func (m *Module) AddGlobal(init int32, mutable bool) uint32 {
	m.Globals = append(m.Globals, Global{Init: init, Mutable: mutable})
	return uint32(len(m.Globals) - 1)
}

// AddFunc defines a function and returns its function index. A non-empty name
// also exports it.
func (m *Module) AddFunc(name string, ft FuncType, locals []Local, code []byte) uint32 {
	m.Funcs = append(m.Funcs, m.TypeIndex(ft))
	m.Code = append(m.Code, FuncBody{Locals: locals, Code: code})
	idx := uint32(len(m.Imports) + len(m.Funcs) - 1)
	if name != "" {
		m.Exports = append(m.Exports, Export{Name: name, Kind: KindFunc, Idx: idx})
	}
	return idx
}

// Encode returns the binary encoding of the module.
func (m *Module) Encode() []byte {
	w := &writer{}
	w.u32le(magic)
	w.u32le(version)

	if len(m.Types) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.byte(funcTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		w.section(sectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(KindFunc)
			sec.u32(imp.TypeIdx)
		}
		w.section(sectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			sec.u32(idx)
		}
		w.section(sectionFunction, sec)
	}

	if m.Memory != nil {
		sec := &writer{}
		sec.u32(1)
		if m.Memory.Max != nil {
			sec.byte(0x01)
			sec.u32(m.Memory.Min)
			sec.u32(*m.Memory.Max)
		} else {
			sec.byte(0x00)
			sec.u32(m.Memory.Min)
		}
		w.section(sectionMemory, sec)
	}

	if len(m.Globals) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.byte(byte(I32))
			if g.Mutable {
				sec.byte(1)
			} else {
				sec.byte(0)
			}
			sec.byte(opI32Const)
			sec.s32(g.Init)
			sec.byte(opEnd)
		}
		w.section(sectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.name(exp.Name)
			sec.byte(exp.Kind)
			sec.u32(exp.Idx)
		}
		w.section(sectionExport, sec)
	}

	if len(m.Code) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.Code)))
		for _, body := range m.Code {
			b := &writer{}
			b.u32(uint32(len(body.Locals)))
			for _, l := range body.Locals {
				b.u32(l.Count)
				b.byte(byte(l.Type))
			}
			b.raw(body.Code)
			sec.u32(uint32(b.len()))
			sec.raw(b.bytes())
		}
		w.section(sectionCode, sec)
	}

	return w.bytes()
}

func writeValTypes(w *writer, types []ValType) {
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.byte(byte(t))
	}
}
