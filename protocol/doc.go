// Package protocol implements the binary interchange format used to pass
// vectors, matrices, images, transforms and collections to and from the
// native engine.
//
// Every entity starts with a 16-byte top header of four little-endian int32
// values:
//
//	[magic][typeCode][secondaryBytes][descriptor]
//
// followed by a kind-specific secondary header and the payload. The
// descriptor is the payload byte count, or minus the element size when the
// payload is too large for an int32 count (large-object mode); the decoder
// then derives the length from the dimensions in the secondary header.
//
// Matrix and Vector payloads are row-major. Image payloads are column-major,
// as are GridTransform displacements. ComboTransform and Collection carry a
// member count followed by complete member encodings.
//
// Magic codes and element type codes are owned by the engine. A Registry
// built from them is passed to NewEncoder and NewDecoder; nothing in this
// package hardcodes either table.
package protocol
