// Package tensor provides the dense N-dimensional array used by the pruning
// operators.
//
// A Tensor is a Shape plus a row-major Data slice. Operations never modify
// their receiver; MaskAxis and Matrix return fresh storage.
//
//   - MaskAxis(axis, keep) zeroes whole slices along one axis, the tensor
//     equivalent of broadcasting a boolean mask across every other axis.
//   - Matrix() collapses all leading axes into rows and keeps the last axis
//     as columns, producing a gonum *mat.Dense for decompositions.
package tensor
