// Package engine hosts a native bisweb computation engine compiled to
// WebAssembly and moves protocol entities across its memory boundary.
//
// # Lifecycle
//
//	eng, err := engine.New(ctx, wasmBytes, &engine.Config{EnableWASI: true})
//	defer eng.Close(ctx)
//
// New instantiates the module with wazero, provides the WASI and Emscripten
// "env" imports, and queries the engine's magic and element type codes once.
// The resulting protocol.Registry is immutable and shared by every call.
//
// # Calls
//
// Algorithms are exported functions of the form
//
//	fn(in0, ..., inN, jsonParams, debug) -> out
//
// where every in and out is the engine address of a protocol encoding.
// Call encodes the inputs into engine memory, passes params as JSON and frees
// both when the function returns. The result is a Buffer owned by the engine.
//
// # Buffer ownership
//
// A Buffer returned by Call or Upload must be released exactly once, either
// with Buffer.Release or with Engine.DecodeAndRelease. Run combines Call and
// DecodeAndRelease for the common case:
//
//	out, err := eng.Run(ctx, "smoothImage", map[string]any{"sigma": 2.0}, false, img)
//
// Releasing twice or reading a released buffer panics.
//
// # Concurrency
//
// Guest execution is single-threaded. An Engine serializes all calls, buffer
// reads and releases behind one mutex.
//
// # Observability
//
// Logging goes through the zap logger installed with SetLogger (no-op by
// default). Each Engine keeps call counts, durations and byte counters in its
// own metrics set, exported by WriteMetrics in Prometheus text format.
package engine
