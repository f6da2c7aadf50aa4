package protocol

import (
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
)

// FromArray wraps a as the entity its rank implies: rank 1 is a Vector, rank 2
// a Matrix and ranks 3 to 5 an Image. With asImage set the result is always an
// Image whose shape is padded to five axes with trailing 1s.
//
// spacing supplies per-axis spacing for images; missing entries default to 1.
func FromArray(a *ndarray.Array, asImage bool, spacing ...float32) (Entity, error) {
	if a == nil {
		return nil, errors.InvalidInput(errors.PhaseEncode, "nil array")
	}
	rank := a.Rank()
	if rank < 1 || rank > ImageRank {
		return nil, errors.InvalidInput(errors.PhaseEncode, "no entity for rank %d array", rank)
	}
	if len(spacing) > ImageRank {
		return nil, errors.InvalidInput(errors.PhaseEncode, "%d spacing values for at most %d axes", len(spacing), ImageRank)
	}

	switch {
	case !asImage && rank == 1:
		return &Vector{Data: a}, nil
	case !asImage && rank == 2:
		return &Matrix{Data: a}, nil
	}

	var sp [ImageRank]float32
	for i := range sp {
		sp[i] = 1
		if i < len(spacing) {
			sp[i] = spacing[i]
		}
	}
	data := a
	if asImage && rank < ImageRank {
		shape := a.Shape()
		for len(shape) < ImageRank {
			shape = append(shape, 1)
		}
		var err error
		if data, err = a.Reshape(shape); err != nil {
			return nil, err
		}
	}
	return &Image{Data: data, Spacing: sp}, nil
}
