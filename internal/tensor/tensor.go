package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when data, indices or masks do not agree with a
// tensor's shape.
var ErrShape = errors.New("tensor: shape mismatch")

// ErrEmpty is returned when an operation needs at least one element along
// an axis that has none.
var ErrEmpty = errors.New("tensor: empty")

// Tensor is a dense N-dimensional array of float64 stored in row-major
// order. The last axis varies fastest.
type Tensor struct {
	Shape []int
	Data  []float64
}

// New returns a zero-filled tensor with the given shape.
// Negative dimensions are treated as zero.
func New(shape ...int) *Tensor {
	s := normalizeShape(shape)
	return &Tensor{Shape: s, Data: make([]float64, product(s))}
}

// FromSlice wraps a copy of data in a tensor of the given shape.
// len(data) must equal the product of shape.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	s := normalizeShape(shape)
	if n := product(s); n != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v (want %d)", ErrShape, len(data), s, n)
	}
	d := make([]float64, len(data))
	copy(d, data)
	return &Tensor{Shape: s, Data: d}, nil
}

// NDim returns the number of axes.
func (t *Tensor) NDim() int { return len(t.Shape) }

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.Data) }

// Dim returns the length of axis, or 0 if the axis does not exist.
func (t *Tensor) Dim(axis int) int {
	if axis < 0 || axis >= len(t.Shape) {
		return 0
	}
	return t.Shape[axis]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	s := make([]int, len(t.Shape))
	copy(s, t.Shape)
	d := make([]float64, len(t.Data))
	copy(d, t.Data)
	return &Tensor{Shape: s, Data: d}
}

// Offset converts a multi-index into a position in Data.
func (t *Tensor) Offset(idx ...int) (int, error) {
	if len(idx) != len(t.Shape) {
		return 0, fmt.Errorf("%w: %d indices for %d axes", ErrShape, len(idx), len(t.Shape))
	}
	off := 0
	for i, n := range t.Shape {
		if idx[i] < 0 || idx[i] >= n {
			return 0, fmt.Errorf("%w: index %d out of range [0,%d) on axis %d", ErrShape, idx[i], n, i)
		}
		off = off*n + idx[i]
	}
	return off, nil
}

// At returns the element at idx. It panics on an invalid index, like a
// slice access would.
func (t *Tensor) At(idx ...int) float64 {
	off, err := t.Offset(idx...)
	if err != nil {
		panic(err)
	}
	return t.Data[off]
}

// Set stores v at idx. It panics on an invalid index.
func (t *Tensor) Set(v float64, idx ...int) {
	off, err := t.Offset(idx...)
	if err != nil {
		panic(err)
	}
	t.Data[off] = v
}

// Equal reports whether t and o have the same shape and identical elements.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !sameShape(t.Shape, o.Shape) || len(t.Data) != len(o.Data) {
		return false
	}
	for i := range t.Data {
		if t.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every element is exactly zero.
func (t *Tensor) IsZero() bool {
	for _, v := range t.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// MaskAxis returns a copy of t in which every slice along axis whose keep
// entry is false is set to zero. Shape is preserved. len(keep) must equal
// the length of axis.
func (t *Tensor) MaskAxis(axis int, keep []bool) (*Tensor, error) {
	if err := t.validShape(); err != nil {
		return nil, err
	}
	if axis < 0 || axis >= len(t.Shape) {
		return nil, fmt.Errorf("%w: axis %d out of range for %d axes", ErrShape, axis, len(t.Shape))
	}
	dim := t.Shape[axis]
	if len(keep) != dim {
		return nil, fmt.Errorf("%w: mask length %d, axis %d has length %d", ErrShape, len(keep), axis, dim)
	}

	out := t.Clone()
	inner := product(t.Shape[axis+1:])
	outer := product(t.Shape[:axis])
	for o := 0; o < outer; o++ {
		for k := 0; k < dim; k++ {
			if keep[k] {
				continue
			}
			start := (o*dim + k) * inner
			clear(out.Data[start : start+inner])
		}
	}
	return out, nil
}

// Matrix flattens t into a 2-D matrix: the last axis becomes the columns
// and all leading axes are collapsed into rows. A 1-D tensor becomes a
// single row. The matrix owns a copy of the data.
func (t *Tensor) Matrix() (*mat.Dense, error) {
	if err := t.validShape(); err != nil {
		return nil, err
	}
	if len(t.Shape) == 0 {
		return nil, fmt.Errorf("%w: 0-d tensor has no column axis", ErrEmpty)
	}
	cols := t.Shape[len(t.Shape)-1]
	rows := product(t.Shape[:len(t.Shape)-1])
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: flattened shape %dx%d", ErrEmpty, rows, cols)
	}
	d := make([]float64, len(t.Data))
	copy(d, t.Data)
	return mat.NewDense(rows, cols, d), nil
}

// validShape reports whether Shape and Data agree. Both fields are exported,
// so a Tensor built by hand may not.
func (t *Tensor) validShape() error {
	for i, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative length %d on axis %d", ErrShape, d, i)
		}
	}
	if n := product(t.Shape); len(t.Data) != n {
		return fmt.Errorf("%w: %d values for shape %v (want %d)", ErrShape, len(t.Data), t.Shape, n)
	}
	return nil
}

func normalizeShape(shape []int) []int {
	s := make([]int, len(shape))
	for i, n := range shape {
		if n > 0 {
			s[i] = n
		}
	}
	return s
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
