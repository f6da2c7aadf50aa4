// Package bisweb moves typed numerical entities between Go and the BioImage Suite
// native computation engine.
//
// The engine is a precompiled WebAssembly module that runs registration,
// segmentation and filtering kernels. It accepts and returns objects in a compact
// self-describing binary layout; this module implements that layout and the host
// side of the boundary.
//
// # Architecture Overview
//
//	bisweb/              Root package with the Memory and Allocator boundary interfaces
//	├── dtype/           Element types and the external type-code table
//	├── ndarray/         Shaped numeric arrays and row/column-major byte copies
//	├── protocol/        Entity types, magic-code registry, Encoder and Decoder
//	├── engine/          wazero host: registry query, guest buffers, algorithm calls
//	├── snapshot/        Container file for encoded entities
//	├── errors/          Structured error types
//	└── cmd/bisweb/      Command line tool
//
// # Wire Format
//
// Every entity starts with a 16-byte top header of four int32 values:
//
//	[magic][typeCode][secondaryHeaderBytes][payloadDescriptor]
//
// followed by a kind-specific secondary header and the payload. Vectors and
// matrices are stored row-major; images and grid transforms are stored
// column-major because the engine's voxel kernels traverse x fastest. Composite
// kinds (combo transforms and collections) embed complete member encodings.
//
// # Quick Start
//
//	eng, err := engine.New(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	img := protocol.NewImage(voxels, [5]float32{1, 1, 1, 1, 1})
//	out, err := eng.Run(ctx, "gaussianSmoothImageWASM", map[string]any{"sigma": 2.0}, false, img)
//
// # Thread Safety
//
// Registry, Encoder and Decoder are safe for concurrent use. Engine serializes
// calls into the guest; Buffer values are owned by a single goroutine until
// released.
package bisweb
