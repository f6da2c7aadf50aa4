// Package errors provides structured error types for the bisweb protocol and engine host.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Kind values mirror the protocol's failure taxonomy:
//
//	unsupported_type     encode: element type has no external tag
//	unknown_type_code    decode: tag not in the type table
//	unknown_entity_kind  decode: magic code not registered
//	malformed_header     decode: invalid header or truncated buffer
//	invariant_violation  decode: payload disagrees with its header
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedHeader).
//		Entity("Matrix").
//		Offset(16).
//		Detail("rows = %d", rows).
//		Build()
//
// Or the convenience constructors. All errors support errors.Is/As; the exported
// sentinels match by kind regardless of phase:
//
//	if errors.Is(err, bserrors.ErrMalformedHeader) { ... }
//
// None of these errors are retried inside the module.
package errors
