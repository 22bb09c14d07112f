package collect

import "fmt"

// Array is a collected variable: a dense row-major array with the
// variable's dimensions and attributes.
type Array struct {
	Name  string
	Dims  Dims
	Shape []int

	// Data holds numeric values; Strings holds text variables.
	Data    []float64
	Strings []string

	DType      string
	Attributes map[string]any
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a.Strings != nil {
		return len(a.Strings)
	}
	return len(a.Data)
}

// At returns the element at idx, one index per dimension. It panics if the
// index is out of range.
func (a *Array) At(idx ...int) float64 {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("collect: %d indices for %d dimensions", len(idx), len(a.Shape)))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= a.Shape[d] {
			panic(fmt.Sprintf("collect: index %d out of range [0, %d) on axis %d", i, a.Shape[d], d))
		}
		off = off*a.Shape[d] + i
	}
	return a.Data[off]
}

// Scalar returns the value of a single-element numeric array.
func (a *Array) Scalar() (float64, error) {
	if len(a.Data) != 1 {
		return 0, fmt.Errorf("%s: %d elements, not a scalar", a.Name, a.Len())
	}
	return a.Data[0], nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	n := 1
	for d := len(shape) - 1; d >= 0; d-- {
		s[d] = n
		n *= shape[d]
	}
	return s
}

// place copies the block src of shape srcShape into dst of shape dstShape
// with its first element at off.
func place(dst []float64, dstShape []int, src []float64, srcShape []int, off []int) error {
	rank := len(dstShape)
	if len(srcShape) != rank || len(off) != rank {
		return fmt.Errorf("block of rank %d placed into rank %d", len(srcShape), rank)
	}
	for d := range dstShape {
		if off[d] < 0 || off[d]+srcShape[d] > dstShape[d] {
			return fmt.Errorf("block %v at %v outside %v", srcShape, off, dstShape)
		}
	}
	n := product(srcShape)
	if len(src) != n {
		return fmt.Errorf("block %v holds %d values", srcShape, len(src))
	}
	if n == 0 {
		return nil
	}
	if rank == 0 {
		dst[0] = src[0]
		return nil
	}

	ds := strides(dstShape)
	row := srcShape[rank-1]
	idx := make([]int, rank-1)
	for s := 0; s < n; s += row {
		o := off[rank-1]
		for d, i := range idx {
			o += (off[d] + i) * ds[d]
		}
		copy(dst[o:o+row], src[s:s+row])
		for d := rank - 2; d >= 0; d-- {
			idx[d]++
			if idx[d] < srcShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return nil
}

// decimate keeps every steps[d]-th index along each axis d.
func decimate(data []float64, shape, steps []int) ([]float64, []int) {
	trivial := true
	out := make([]int, len(shape))
	for d, n := range shape {
		out[d] = (n + steps[d] - 1) / steps[d]
		if steps[d] != 1 {
			trivial = false
		}
	}
	if trivial {
		return data, shape
	}

	n := product(out)
	res := make([]float64, n)
	if n == 0 {
		return res, out
	}
	ss := strides(shape)
	idx := make([]int, len(out))
	for k := range res {
		o := 0
		for d, i := range idx {
			o += i * steps[d] * ss[d]
		}
		res[k] = data[o]
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < out[d] {
				break
			}
			idx[d] = 0
		}
	}
	return res, out
}
