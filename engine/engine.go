package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	bisweb "github.com/bioimagesuiteweb/bisweb-sub000"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Config holds configuration for engine creation
type Config struct {
	// ModuleName names the instantiated module. Defaults to "bisweb".
	ModuleName string

	// Encode configures how entities are encoded on upload.
	Encode protocol.EncodeOptions

	// MemoryLimitPages sets the maximum memory in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableWASI provides WASI preview1 imports.
	EnableWASI bool
}

// Engine hosts one instance of a native engine module. Guest calls are
// serialized; an Engine is safe for concurrent use.
type Engine struct {
	runtime wazero.Runtime
	module  api.Module
	reg     *protocol.Registry
	enc     *protocol.Encoder
	dec     *protocol.Decoder
	exports *xsync.MapOf[string, api.Function]
	metrics *engineMetrics
	mu      sync.Mutex
	closed  bool
}

// New compiles and instantiates wasmBytes and queries its code registry.
func New(ctx context.Context, wasmBytes []byte, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	name := cfg.ModuleName
	if name == "" {
		name = "bisweb"
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e := &Engine{
		runtime: runtime,
		exports: xsync.NewMapOf[string, api.Function](),
		metrics: newEngineMetrics(),
	}
	if err := e.instantiate(ctx, wasmBytes, name, cfg.EnableWASI); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	reg, err := e.queryRegistry(ctx)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRegistry, errors.KindInstantiation, err, "query engine codes")
	}
	e.reg = reg
	e.enc = protocol.NewEncoder(reg, cfg.Encode)
	e.dec = protocol.NewDecoder(reg)

	Logger().Info("engine ready",
		zap.String("module", name),
		zap.Any("magic", reg.Codes()),
		zap.Stringer("types", reg.Types()))
	return e, nil
}

func (e *Engine) instantiate(ctx context.Context, wasmBytes []byte, name string, wasi bool) error {
	if wasi {
		if _, err := instantiateWASI(ctx, e.runtime); err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
		}
	}
	if _, err := instantiateEnv(ctx, e.runtime, e.metrics); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate env")
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "compile failed")
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate failed")
	}
	if mod.Memory() == nil {
		return errors.New(errors.PhaseLoad, errors.KindNotFound).Detail("engine exports no memory").Build()
	}
	e.module = mod

	// Emscripten reactors run their constructors from _initialize.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "_initialize failed")
		}
	}
	return nil
}

// Registry returns the codes queried from the engine.
func (e *Engine) Registry() *protocol.Registry {
	return e.reg
}

// Encoder returns the encoder used for uploads.
func (e *Engine) Encoder() *protocol.Encoder {
	return e.enc
}

// Decoder returns the decoder used for results.
func (e *Engine) Decoder() *protocol.Decoder {
	return e.dec
}

// Memory returns the engine's linear memory. Callers must not use it while
// another goroutine is calling into the engine.
func (e *Engine) Memory() bisweb.Memory {
	return &memory{mem: e.module.Memory()}
}

// Close releases the runtime and everything it instantiated.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(ctx)
}

func (e *Engine) function(name string) (api.Function, error) {
	if fn, ok := e.exports.Load(name); ok {
		return fn, nil
	}
	fn := e.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseEngine, name)
	}
	e.exports.Store(name, fn)
	return fn, nil
}

func (e *Engine) allocator(ctx context.Context) (*allocator, error) {
	malloc, err := e.function("malloc")
	if err != nil {
		return nil, err
	}
	free, err := e.function("free")
	if err != nil {
		return nil, err
	}
	return &allocator{ctx: ctx, malloc: malloc, free: free}, nil
}

// Invoke calls an exported function with raw core values.
func (e *Engine) Invoke(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.invoke(ctx, name, params...)
}

func (e *Engine) invoke(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, err := e.function(name)
	if err != nil {
		return nil, err
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindCall, err, name)
	}
	return res, nil
}

func (e *Engine) checkOpen() error {
	if e.closed {
		return errors.InvalidInput(errors.PhaseEngine, "engine is closed")
	}
	return nil
}

// Upload encodes ent into a newly allocated block of engine memory. The
// returned buffer must be released.
func (e *Engine) Upload(ctx context.Context, ent protocol.Entity) (*Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	alloc, err := e.allocator(ctx)
	if err != nil {
		return nil, err
	}
	ptr, err := e.upload(alloc, ent)
	if err != nil {
		return nil, err
	}
	return &Buffer{eng: e, ptr: ptr}, nil
}

func (e *Engine) upload(alloc *allocator, ent protocol.Entity) (uint32, error) {
	data, err := e.enc.Encode(ent)
	if err != nil {
		return 0, err
	}
	return e.write(alloc, data)
}

func (e *Engine) write(alloc *allocator, data []byte) (uint32, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return 0, errors.Overflow(errors.PhaseEngine, "", len(data), "32-bit engine address space")
	}
	ptr, err := alloc.Alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	mem := &memory{mem: e.module.Memory()}
	if err := mem.Write(ptr, data); err != nil {
		_ = alloc.Free(ptr)
		return 0, errors.Wrap(errors.PhaseEngine, errors.KindAllocation, err, "write upload")
	}
	e.metrics.bytesUploaded.Add(len(data))
	return ptr, nil
}

// Call invokes fn(in0, ..., inN, params, debug) and returns the engine-owned
// result buffer, which the caller must release. Inputs are encoded into
// engine memory and params is passed as a NUL-terminated JSON string; both
// are freed when the call returns. A NULL result is an error.
func (e *Engine) Call(ctx context.Context, fn string, params any, debug bool, inputs ...protocol.Entity) (buf *Buffer, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		e.metrics.observeCall(fn, start, err)
		Logger().Debug("engine call",
			zap.String("function", fn),
			zap.Int("inputs", len(inputs)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}()

	f, err := e.function(fn)
	if err != nil {
		return nil, err
	}
	if want := len(inputs) + 2; len(f.Definition().ParamTypes()) != want {
		return nil, errors.InvalidInput(errors.PhaseEngine, "%s takes %d parameters, call supplies %d",
			fn, len(f.Definition().ParamTypes()), want)
	}
	alloc, err := e.allocator(ctx)
	if err != nil {
		return nil, err
	}

	allocs := newAllocationList()
	defer func() {
		buf, err = settleCall(alloc, allocs, buf, err)
		allocs.release()
	}()

	args := make([]uint64, 0, len(inputs)+2)
	for i, in := range inputs {
		ptr, err := e.upload(alloc, in)
		if err != nil {
			return nil, errors.WithPath(err, fmt.Sprintf("input[%d]", i))
		}
		allocs.add(ptr)
		args = append(args, api.EncodeU32(ptr))
	}

	jsonPtr, err := e.writeParams(alloc, params)
	if err != nil {
		return nil, err
	}
	allocs.add(jsonPtr)
	args = append(args, api.EncodeU32(jsonPtr))
	if debug {
		args = append(args, 1)
	} else {
		args = append(args, 0)
	}

	res, err := f.Call(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindCall, err, fn)
	}
	if len(res) == 0 || api.DecodeU32(res[0]) == 0 {
		return nil, errors.New(errors.PhaseEngine, errors.KindCall).Detail("%s returned NULL", fn).Build()
	}
	return &Buffer{eng: e, ptr: api.DecodeU32(res[0])}, nil
}

func (e *Engine) writeParams(alloc *allocator, params any) (uint32, error) {
	data := []byte("{}")
	if params != nil {
		var err error
		if data, err = json.Marshal(params); err != nil {
			return 0, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "encode parameters")
		}
	}
	return e.write(alloc, append(data, 0))
}

// DecodeAndRelease decodes buf and releases it. The buffer is released even
// when decoding fails.
func (e *Engine) DecodeAndRelease(ctx context.Context, buf *Buffer) (ent protocol.Entity, err error) {
	defer func() {
		err = multierr.Append(err, buf.Release(ctx))
		if err != nil {
			ent = nil
		}
	}()
	data, err := buf.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	return e.dec.Decode(data)
}

// Run calls fn and decodes its result.
func (e *Engine) Run(ctx context.Context, fn string, params any, debug bool, inputs ...protocol.Entity) (protocol.Entity, error) {
	buf, err := e.Call(ctx, fn, params, debug, inputs...)
	if err != nil {
		return nil, err
	}
	return e.DecodeAndRelease(ctx, buf)
}
