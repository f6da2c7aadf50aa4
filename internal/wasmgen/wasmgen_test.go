package wasmgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		fn   func(w *writer)
		want []byte
	}{
		{"u32 zero", func(w *writer) { w.u32(0) }, []byte{0x00}},
		{"u32 127", func(w *writer) { w.u32(127) }, []byte{0x7F}},
		{"u32 128", func(w *writer) { w.u32(128) }, []byte{0x80, 0x01}},
		{"u32 624485", func(w *writer) { w.u32(624485) }, []byte{0xE5, 0x8E, 0x26}},
		{"s32 zero", func(w *writer) { w.s32(0) }, []byte{0x00}},
		{"s32 63", func(w *writer) { w.s32(63) }, []byte{0x3F}},
		{"s32 64", func(w *writer) { w.s32(64) }, []byte{0xC0, 0x00}},
		{"s32 -1", func(w *writer) { w.s32(-1) }, []byte{0x7F}},
		{"s32 -8", func(w *writer) { w.s32(-8) }, []byte{0x78}},
		{"s32 -123456", func(w *writer) { w.s32(-123456) }, []byte{0xC0, 0xBB, 0x78}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &writer{}
			tt.fn(w)
			assert.Equal(t, tt.want, w.bytes())
		})
	}
}

func TestEncodeEmptyModule(t *testing.T) {
	data := (&Module{}).Encode()
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, data)
}

func TestTypeIndexDeduplicates(t *testing.T) {
	m := &Module{}
	a := m.TypeIndex(FuncType{Params: []ValType{I32}, Results: []ValType{I32}})
	b := m.TypeIndex(FuncType{Results: []ValType{I32}})
	c := m.TypeIndex(FuncType{Params: []ValType{I32}, Results: []ValType{I32}})
	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), b)
	assert.Equal(t, a, c)
	assert.Len(t, m.Types, 2)
}

func TestImportAfterFuncPanics(t *testing.T) {
	m := &Module{}
	m.AddFunc("f", FuncType{}, nil, NewCode().End().Bytes())
	assert.Panics(t, func() { m.ImportFunc("env", "g", FuncType{}) })
}

func TestModuleRunsInWazero(t *testing.T) {
	ctx := context.Background()

	m := &Module{Memory: &Limits{Min: 1}}
	var notified []uint32
	notify := m.ImportFunc("env", "notify", FuncType{Params: []ValType{I32}})
	counter := m.AddGlobal(5, true)

	// bump(n) adds n to the counter, stores it at address 64 and reports it.
	m.AddFunc("bump", FuncType{Params: []ValType{I32}, Results: []ValType{I32}}, []Local{{Count: 1, Type: I32}},
		NewCode().
			GlobalGet(counter).LocalGet(0).Add().LocalTee(1).GlobalSet(counter).
			I32Const(64).LocalGet(1).I32Store(0).
			LocalGet(1).Call(notify).
			I32Const(64).I32Load(0).
			End().Bytes())
	m.AddFunc("negative", FuncType{Results: []ValType{I32}}, nil, NewCode().I32Const(-123456).End().Bytes())
	m.AddFunc("pages", FuncType{Results: []ValType{I32}}, nil, NewCode().MemorySize().End().Bytes())
	m.Exports = append(m.Exports, Export{Name: "memory", Kind: KindMemory, Idx: 0})

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, v uint32) { notified = append(notified, v) }).
		Export("notify").
		Instantiate(ctx)
	require.NoError(t, err)

	mod, err := r.Instantiate(ctx, m.Encode())
	require.NoError(t, err)

	res, err := mod.ExportedFunction("bump").Call(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(15), api.DecodeU32(res[0]))
	assert.Equal(t, []uint32{15}, notified)

	v, ok := mod.Memory().ReadUint32Le(64)
	require.True(t, ok)
	assert.Equal(t, uint32(15), v)

	res, err = mod.ExportedFunction("negative").Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-123456), api.DecodeI32(res[0]))

	res, err = mod.ExportedFunction("pages").Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), api.DecodeU32(res[0]))
}
