package ndarray

// Order is a storage ordering for multi-dimensional payloads.
type Order int

const (
	// RowMajor stores the last axis fastest (C order).
	RowMajor Order = iota
	// ColumnMajor stores the first axis fastest (Fortran order).
	ColumnMajor
)

// String returns the order name.
func (o Order) String() string {
	if o == ColumnMajor {
		return "column-major"
	}
	return "row-major"
}

// CopyOrdered copies the elements of src, laid out in order from, into dst laid
// out in order to. Both slices must hold shape.NumElements()*itemSize bytes.
func CopyOrdered(dst, src []byte, shape Shape, itemSize int, from, to Order) {
	n := shape.NumElements()
	if from == to || len(shape) < 2 {
		copy(dst[:n*itemSize], src[:n*itemSize])
		return
	}

	// Walk the index space in row-major order while tracking the
	// column-major position incrementally.
	colStrides := shape.Strides(ColumnMajor)
	idx := make([]int, len(shape))
	colPos := 0
	for rowPos := 0; rowPos < n; rowPos++ {
		s, d := rowPos, colPos
		if from == ColumnMajor {
			s, d = colPos, rowPos
		}
		copy(dst[d*itemSize:(d+1)*itemSize], src[s*itemSize:(s+1)*itemSize])

		for ax := len(shape) - 1; ax >= 0; ax-- {
			idx[ax]++
			colPos += colStrides[ax]
			if idx[ax] < shape[ax] {
				break
			}
			colPos -= colStrides[ax] * shape[ax]
			idx[ax] = 0
		}
	}
}
