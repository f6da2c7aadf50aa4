package protocol

import (
	"fmt"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
)

// Kind identifies one of the encodable entity kinds.
type Kind int

const (
	KindVector Kind = iota
	KindMatrix
	KindImage
	KindGridTransform
	KindComboTransform
	KindCollection
)

// Kinds lists every entity kind.
var Kinds = []Kind{KindVector, KindMatrix, KindImage, KindGridTransform, KindComboTransform, KindCollection}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindVector:
		return "Vector"
	case KindMatrix:
		return "Matrix"
	case KindImage:
		return "Image"
	case KindGridTransform:
		return "GridTransform"
	case KindComboTransform:
		return "ComboTransform"
	case KindCollection:
		return "Collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MagicCodes holds the engine's identifier for each entity kind.
type MagicCodes struct {
	Vector         int32 `json:"vector"`
	Matrix         int32 `json:"matrix"`
	Image          int32 `json:"image"`
	GridTransform  int32 `json:"gridTransform"`
	ComboTransform int32 `json:"comboTransform"`
	Collection     int32 `json:"collection"`
}

// Of returns the code for k.
func (m MagicCodes) Of(k Kind) int32 {
	switch k {
	case KindVector:
		return m.Vector
	case KindMatrix:
		return m.Matrix
	case KindImage:
		return m.Image
	case KindGridTransform:
		return m.GridTransform
	case KindComboTransform:
		return m.ComboTransform
	case KindCollection:
		return m.Collection
	default:
		return 0
	}
}

// Registry is the immutable pairing of magic codes and the element type table
// obtained from the native engine. It is safe for concurrent use.
type Registry struct {
	types *dtype.Table
	kinds map[int32]Kind
	magic MagicCodes
}

// NewRegistry validates codes and builds a Registry.
func NewRegistry(codes MagicCodes, types *dtype.Table) (*Registry, error) {
	if types == nil {
		return nil, errors.InvalidInput(errors.PhaseRegistry, "nil type table")
	}
	r := &Registry{
		types: types,
		kinds: make(map[int32]Kind, len(Kinds)),
		magic: codes,
	}
	for _, k := range Kinds {
		code := codes.Of(k)
		if prev, dup := r.kinds[code]; dup {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "magic code %d shared by %s and %s", code, prev, k)
		}
		r.kinds[code] = k
	}
	return r, nil
}

// Magic returns the magic code for k.
func (r *Registry) Magic(k Kind) int32 {
	return r.magic.Of(k)
}

// KindOf returns the kind registered under magic.
func (r *Registry) KindOf(magic int32) (Kind, error) {
	k, ok := r.kinds[magic]
	if !ok {
		return 0, errors.UnknownEntityKind(errors.PhaseDecode, magic, 0)
	}
	return k, nil
}

// NameForMagic returns a diagnostic name for magic.
func (r *Registry) NameForMagic(magic int32) string {
	if k, ok := r.kinds[magic]; ok {
		return k.String()
	}
	return fmt.Sprintf("unknown(%d)", magic)
}

// Types returns the element type table.
func (r *Registry) Types() *dtype.Table {
	return r.types
}

// Codes returns the magic codes.
func (r *Registry) Codes() MagicCodes {
	return r.magic
}
