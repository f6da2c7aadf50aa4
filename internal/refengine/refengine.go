// Package refengine builds a small native engine module that speaks the
// interchange protocol's boundary ABI. It stands in for the real engine in
// tests, the selftest command and examples.
//
// The module exports:
//
//	memory
//	get<Kind>MagicCode() i32          for each entity kind
//	get<Type>TypeCode() i32           for each element type
//	malloc(size i32) i32              8-byte aligned bump allocator, grows memory
//	free(ptr i32)                     counts calls, never reuses memory
//	getFreeCount() i32
//	duplicateObject(in, json, debug i32) i32
//	nullObject(in, json, debug i32) i32   always returns 0
//
// duplicateObject copies the protocol encoding at in, sizing it from the top
// header, so it only accepts objects whose top descriptor is a byte count.
// malloc calls the imported env.emscripten_notify_memory_growth after growing
// memory, as Emscripten builds do.
package refengine

import (
	"strings"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/internal/wasmgen"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Magic is the reference engine's magic code table.
var Magic = protocol.MagicCodes{
	Vector:         20001,
	Matrix:         20002,
	Image:          20003,
	GridTransform:  20004,
	ComboTransform: 20005,
	Collection:     20006,
}

// TypeCodes are the NIfTI datatype codes, which the engine uses as its type
// tags.
var TypeCodes = map[dtype.ElementType]int32{
	dtype.Uint8:   2,
	dtype.Int16:   4,
	dtype.Int32:   8,
	dtype.Float32: 16,
	dtype.Float64: 64,
	dtype.Int8:    256,
	dtype.Uint16:  512,
	dtype.Uint32:  768,
}

// HeapBase is the address of the first allocation.
const HeapBase = 1024

// InitialPages is the initial memory size in 64KiB pages.
const InitialPages = 2

// Registry returns the registry an engine instantiated from Module reports.
func Registry() (*protocol.Registry, error) {
	types, err := dtype.NewTable(TypeCodes)
	if err != nil {
		return nil, err
	}
	return protocol.NewRegistry(Magic, types)
}

// MagicExport returns the name of the magic code getter for k.
func MagicExport(k protocol.Kind) string {
	return "get" + k.String() + "MagicCode"
}

// TypeExport returns the name of the type code getter for et.
func TypeExport(et dtype.ElementType) string {
	name := et.String()
	return "get" + strings.ToUpper(name[:1]) + name[1:] + "TypeCode"
}

var (
	getter = wasmgen.FuncType{Results: []wasmgen.ValType{wasmgen.I32}}
	unary  = wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32}, Results: []wasmgen.ValType{wasmgen.I32}}
	sink   = wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32}}
	call3  = wasmgen.FuncType{
		Params:  []wasmgen.ValType{wasmgen.I32, wasmgen.I32, wasmgen.I32},
		Results: []wasmgen.ValType{wasmgen.I32},
	}
)

// Module returns the encoded reference engine.
func Module() []byte {
	m := &wasmgen.Module{Memory: &wasmgen.Limits{Min: InitialPages}}
	notify := m.ImportFunc("env", "emscripten_notify_memory_growth", sink)
	heap := m.AddGlobal(HeapBase, true)
	frees := m.AddGlobal(0, true)

	for _, k := range protocol.Kinds {
		m.AddFunc(MagicExport(k), getter, nil, wasmgen.NewCode().I32Const(Magic.Of(k)).End().Bytes())
	}
	for _, et := range dtype.All {
		m.AddFunc(TypeExport(et), getter, nil, wasmgen.NewCode().I32Const(TypeCodes[et]).End().Bytes())
	}

	// malloc(size): locals 1 = ptr, 2 = end.
	malloc := m.AddFunc("malloc", unary, []wasmgen.Local{{Count: 2, Type: wasmgen.I32}},
		wasmgen.NewCode().
			GlobalGet(heap).LocalSet(1).
			LocalGet(1).LocalGet(0).Add().I32Const(7).Add().I32Const(-8).And().LocalTee(2).GlobalSet(heap).
			LocalGet(2).MemorySize().I32Const(16).Shl().GtU().If().
			LocalGet(2).MemorySize().I32Const(16).Shl().Sub().I32Const(0xFFFF).Add().I32Const(16).ShrU().
			MemoryGrow().I32Const(-1).Eq().If().Unreachable().End().
			I32Const(0).Call(notify).
			End().
			LocalGet(1).
			End().Bytes())

	m.AddFunc("free", sink, nil,
		wasmgen.NewCode().GlobalGet(frees).I32Const(1).Add().GlobalSet(frees).End().Bytes())
	m.AddFunc("getFreeCount", getter, nil,
		wasmgen.NewCode().GlobalGet(frees).End().Bytes())

	// duplicateObject(in, json, debug): locals 3 = size, 4 = out.
	m.AddFunc("duplicateObject", call3, []wasmgen.Local{{Count: 2, Type: wasmgen.I32}},
		wasmgen.NewCode().
			LocalGet(0).I32Load(8).LocalGet(0).I32Load(12).Add().I32Const(protocol.TopHeaderSize).Add().LocalSet(3).
			LocalGet(3).Call(malloc).LocalSet(4).
			LocalGet(4).LocalGet(0).LocalGet(3).MemoryCopy().
			LocalGet(4).
			End().Bytes())

	m.AddFunc("nullObject", call3, nil, wasmgen.NewCode().I32Const(0).End().Bytes())

	m.Exports = append(m.Exports, wasmgen.Export{Name: "memory", Kind: wasmgen.KindMemory, Idx: 0})
	return m.Encode()
}
