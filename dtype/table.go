package dtype

import (
	"fmt"
	"sort"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
)

// Table is an immutable bijection between element types and the external
// type codes agreed with the native engine. Codes are a wire-compatibility
// contract and are never renumbered locally: a Table is always built from
// codes supplied by the engine or recorded alongside encoded data.
type Table struct {
	codes map[ElementType]int32
	types map[int32]ElementType
}

// NewTable builds a Table. Every supported element type must have a code and
// no code may be shared.
func NewTable(codes map[ElementType]int32) (*Table, error) {
	t := &Table{
		codes: make(map[ElementType]int32, len(All)),
		types: make(map[int32]ElementType, len(All)),
	}
	for et, code := range codes {
		if !et.Valid() {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "type code %d assigned to invalid element type %d", code, int(et))
		}
		if prev, dup := t.types[code]; dup {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "type code %d shared by %s and %s", code, prev, et)
		}
		t.codes[et] = code
		t.types[code] = et
	}
	for _, et := range All {
		if _, ok := t.codes[et]; !ok {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "no type code for %s", et)
		}
	}
	return t, nil
}

// Code returns the external code for et.
func (t *Table) Code(et ElementType) (int32, error) {
	code, ok := t.codes[et]
	if !ok {
		return 0, errors.UnsupportedType(et.String())
	}
	return code, nil
}

// Lookup returns the element type registered under code.
func (t *Table) Lookup(code int32) (ElementType, error) {
	et, ok := t.types[code]
	if !ok {
		return Invalid, errors.UnknownTypeCode(code)
	}
	return et, nil
}

// Codes returns a copy of the table contents.
func (t *Table) Codes() map[ElementType]int32 {
	out := make(map[ElementType]int32, len(t.codes))
	for k, v := range t.codes {
		out[k] = v
	}
	return out
}

// String lists the table in element type order.
func (t *Table) String() string {
	keys := make([]ElementType, 0, len(t.codes))
	for k := range t.codes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%d", k, t.codes[k])
	}
	return s + "}"
}
