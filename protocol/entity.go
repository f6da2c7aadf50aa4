package protocol

import (
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
)

// Entity is one encodable value. The set of implementations is closed: Vector,
// Matrix, Image, GridTransform, ComboTransform and Collection.
type Entity interface {
	Kind() Kind
	isEntity()
}

// Vector is a 1-D sequence of elements.
type Vector struct {
	Data *ndarray.Array
}

// Matrix is a 2-D array stored row-major on the wire.
type Matrix struct {
	Data *ndarray.Array
}

// Image is an array of up to five axes with per-axis physical spacing, stored
// column-major on the wire.
type Image struct {
	Data    *ndarray.Array
	Spacing [ImageRank]float32
}

// LinearTransform is a 4x4 homogeneous matrix, row-major.
type LinearTransform [4][4]float32

// GridTransform is a displacement field sampled on a regular 3-D lattice.
//
// Displacements holds 3*Dims[0]*Dims[1]*Dims[2] values in wire order: all X
// components, then all Y, then all Z, each block traversed x fastest.
type GridTransform struct {
	Displacements []float32
	Dims          [3]int
	Spacing       [3]float32
	Origin        [3]float32
	BSpline       bool
}

// ComboTransform is one linear transform followed by grid transforms, applied
// in order.
type ComboTransform struct {
	Grids  []*GridTransform
	Linear LinearTransform
}

// Collection is an ordered, heterogeneous list of entities.
type Collection struct {
	Items []Entity
}

func (*Vector) Kind() Kind         { return KindVector }
func (*Matrix) Kind() Kind         { return KindMatrix }
func (*Image) Kind() Kind          { return KindImage }
func (*GridTransform) Kind() Kind  { return KindGridTransform }
func (*ComboTransform) Kind() Kind { return KindComboTransform }
func (*Collection) Kind() Kind     { return KindCollection }

func (*Vector) isEntity()         {}
func (*Matrix) isEntity()         {}
func (*Image) isEntity()          {}
func (*GridTransform) isEntity()  {}
func (*ComboTransform) isEntity() {}
func (*Collection) isEntity()     {}

// NewVector wraps a 1-D array.
func NewVector(a *ndarray.Array) *Vector {
	return &Vector{Data: a}
}

// NewMatrix wraps a 2-D array.
func NewMatrix(a *ndarray.Array) *Matrix {
	return &Matrix{Data: a}
}

// NewImage wraps an array of rank 1..5 with the given spacing. The wire form
// always carries three spatial axes, so decoded images have rank 3 to 5: a
// [2 3] image comes back as [2 3 1].
func NewImage(a *ndarray.Array, spacing [ImageRank]float32) *Image {
	return &Image{Data: a, Spacing: spacing}
}

// NewCollection builds a collection from items.
func NewCollection(items ...Entity) *Collection {
	return &Collection{Items: items}
}

// Identity returns the identity transform.
func Identity() LinearTransform {
	var m LinearTransform
	for i := range m {
		m[i][i] = 1
	}
	return m
}

// NewGridTransform creates a grid with zero displacements.
func NewGridTransform(dims [3]int, spacing, origin [3]float32, bspline bool) *GridTransform {
	n := dims[0] * dims[1] * dims[2]
	if n < 0 {
		n = 0
	}
	return &GridTransform{
		Displacements: make([]float32, 3*n),
		Dims:          dims,
		Spacing:       spacing,
		Origin:        origin,
		BSpline:       bspline,
	}
}

// NumControlPoints returns Dims[0]*Dims[1]*Dims[2].
func (g *GridTransform) NumControlPoints() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

func (g *GridTransform) pointIndex(i, j, k int) int {
	return i + j*g.Dims[0] + k*g.Dims[0]*g.Dims[1]
}

// Displacement returns the displacement vector of control point (i, j, k).
func (g *GridTransform) Displacement(i, j, k int) [3]float32 {
	n, p := g.NumControlPoints(), g.pointIndex(i, j, k)
	return [3]float32{g.Displacements[p], g.Displacements[n+p], g.Displacements[2*n+p]}
}

// SetDisplacement sets the displacement vector of control point (i, j, k).
func (g *GridTransform) SetDisplacement(i, j, k int, d [3]float32) {
	n, p := g.NumControlPoints(), g.pointIndex(i, j, k)
	g.Displacements[p] = d[0]
	g.Displacements[n+p] = d[1]
	g.Displacements[2*n+p] = d[2]
}

// Equal reports whether a and b describe the same value.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Vector:
		y, ok := b.(*Vector)
		return ok && x.Data.Equal(y.Data)
	case *Matrix:
		y, ok := b.(*Matrix)
		return ok && x.Data.Equal(y.Data)
	case *Image:
		y, ok := b.(*Image)
		return ok && x.Spacing == y.Spacing && x.Data.Equal(y.Data)
	case *GridTransform:
		y, ok := b.(*GridTransform)
		return ok && gridEqual(x, y)
	case *ComboTransform:
		y, ok := b.(*ComboTransform)
		if !ok || x.Linear != y.Linear || len(x.Grids) != len(y.Grids) {
			return false
		}
		for i := range x.Grids {
			if !gridEqual(x.Grids[i], y.Grids[i]) {
				return false
			}
		}
		return true
	case *Collection:
		y, ok := b.(*Collection)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func gridEqual(a, b *GridTransform) bool {
	if a.Dims != b.Dims || a.Spacing != b.Spacing || a.Origin != b.Origin || a.BSpline != b.BSpline {
		return false
	}
	if len(a.Displacements) != len(b.Displacements) {
		return false
	}
	for i := range a.Displacements {
		if a.Displacements[i] != b.Displacements[i] {
			return false
		}
	}
	return true
}
