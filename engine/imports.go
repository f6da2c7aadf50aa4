package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// instantiateWASI provides WASI preview1 for engines built against a libc.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// instantiateEnv provides the Emscripten runtime hooks the engine imports from
// "env". Memory growth needs no host action beyond bookkeeping: memory views
// are re-read from the module on every access.
func instantiateEnv(ctx context.Context, r wazero.Runtime, m *engineMetrics) (api.Module, error) {
	return r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			m.memoryGrowth.Inc()
			pages := uint32(0)
			if mem := mod.Memory(); mem != nil {
				pages = mem.Size() / wasmPageSize
			}
			Logger().Debug("engine memory grew",
				zap.Uint32("memory_index", api.DecodeU32(stack[0])),
				zap.Uint32("pages", pages))
		}), []api.ValueType{api.ValueTypeI32}, nil).
		Export("emscripten_notify_memory_growth").
		Instantiate(ctx)
}
