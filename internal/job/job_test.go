package job

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinexus/bpets/internal/pruning"
)

func decodeString(t *testing.T, yaml string) error {
	t.Helper()
	_, err := Decode(strings.NewReader(yaml))
	return err
}

func TestDecode_Minimal(t *testing.T) {
	jobs, err := Decode(strings.NewReader(`
jobs:
  - id: a
    shape: [2, 3, 4, 5]
    weights: [0.2, 0.8, 0.5, 1.2]
    tau: 0.6
`))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	j := jobs[0]
	assert.Equal(t, "a", j.ID)
	assert.Equal(t, []int{2, 3, 4, 5}, j.Tensor.Shape)
	assert.Equal(t, 0.6, j.Tau)
	assert.Nil(t, j.Graph)

	// Default fill is sequence.
	assert.Equal(t, 1.0, j.Tensor.Data[0])
	assert.Equal(t, 120.0, j.Tensor.Data[119])
}

func TestDecode_Fills(t *testing.T) {
	jobs, err := Decode(strings.NewReader(`
jobs:
  - id: zeros
    shape: [1, 1, 2, 2]
    fill: zeros
    weights: [1, 1]
  - id: ones
    shape: [1, 1, 2, 2]
    fill: ones
    weights: [1, 1]
  - id: data
    shape: [1, 1, 2, 2]
    fill: ones
    data: [4, 3, 2, 1]
    weights: [1, 1]
  - id: random
    shape: [1, 1, 2, 2]
    fill: random
    seed: 42
    weights: [1, 1]
`))
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.True(t, jobs[0].Tensor.IsZero())
	assert.Equal(t, []float64{1, 1, 1, 1}, jobs[1].Tensor.Data)
	assert.Equal(t, []float64{4, 3, 2, 1}, jobs[2].Tensor.Data, "data wins over fill")
	for _, v := range jobs[3].Tensor.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestDecode_RandomIsSeeded(t *testing.T) {
	doc := `
jobs:
  - id: r
    shape: [2, 2, 2, 2]
    fill: random
    seed: 7
    weights: [1, 1]
`
	a, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	b, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.True(t, a[0].Tensor.Equal(b[0].Tensor))
}

func TestDecode_Graph(t *testing.T) {
	jobs, err := Decode(strings.NewReader(`
jobs:
  - id: g
    shape: [1, 1, 3, 1]
    weights: [1, 1, 1]
    graph:
      adjacency:    [[1, 1, 1], [1, 1, 1], [1, 1, 1]]
      edge_weights: [[0, 0, 0], [0, 0, 0.9], [0, 0.9, 0]]
      clusters: [0, 0, 1]
      tau: 0.5
`))
	require.NoError(t, err)
	g := jobs[0].Graph
	require.NotNil(t, g)

	r, c := g.Adjacency.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.9, g.EdgeWeights.At(1, 2))
	assert.Equal(t, []int{0, 0, 1}, g.Clusters)
	assert.Equal(t, 0.5, g.Tau)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty document", ``, "no jobs defined"},
		{"empty list", `jobs: []`, "no jobs defined"},
		{"unknown key", "jobs:\n  - id: a\n    shapes: [1]\n", "parse yaml"},
		{"missing id", "jobs:\n  - shape: [1, 1, 1, 1]\n    weights: [1]\n", "jobs[0]: id is required"},
		{"duplicate id", "jobs:\n  - id: a\n    shape: [1, 1, 1, 1]\n    weights: [1]\n  - id: a\n    shape: [1, 1, 1, 1]\n    weights: [1]\n", `duplicate id "a"`},
		{"missing shape", "jobs:\n  - id: a\n    weights: [1]\n", "shape is required"},
		{"zero dim", "jobs:\n  - id: a\n    shape: [1, 0, 1, 1]\n    weights: [1]\n", "shape[1] must be positive"},
		{"too large", "jobs:\n  - id: a\n    shape: [4096, 4096, 2, 1]\n    weights: [1, 1]\n", "exceeds"},
		{"data size", "jobs:\n  - id: a\n    shape: [1, 1, 2, 2]\n    data: [1, 2, 3]\n    weights: [1, 1]\n", `jobs[0] "a"`},
		{"data fill without data", "jobs:\n  - id: a\n    shape: [1, 1, 1, 1]\n    fill: data\n    weights: [1]\n", "requires data"},
		{"unknown fill", "jobs:\n  - id: a\n    shape: [1, 1, 1, 1]\n    fill: gaussian\n    weights: [1]\n", `unknown fill "gaussian"`},
		{"missing weights", "jobs:\n  - id: a\n    shape: [1, 1, 1, 1]\n", "weights are required"},
		{"ragged adjacency", "jobs:\n  - id: a\n    shape: [1, 1, 2, 1]\n    weights: [1, 1]\n    graph:\n      adjacency: [[1, 1], [1]]\n      edge_weights: [[0, 0], [0, 0]]\n      clusters: [0, 1]\n", "adjacency row 1 has 1 entries, want 2"},
		{"missing edge weights", "jobs:\n  - id: a\n    shape: [1, 1, 2, 1]\n    weights: [1, 1]\n    graph:\n      adjacency: [[1, 1], [1, 1]]\n      clusters: [0, 1]\n", "edge_weights is required"},
		{"missing clusters", "jobs:\n  - id: a\n    shape: [1, 1, 2, 1]\n    weights: [1, 1]\n    graph:\n      adjacency: [[1, 1], [1, 1]]\n      edge_weights: [[0, 0], [0, 0]]\n", "clusters are required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := decodeString(t, tc.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDecode_NonSquareGraphIsShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		graph string
	}{
		{"ragged adjacency", "      adjacency: [[1, 1], [1]]\n      edge_weights: [[0, 0], [0, 0]]\n"},
		{"wide edge weights", "      adjacency: [[1, 1], [1, 1]]\n      edge_weights: [[0, 0, 0], [0, 0, 0]]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := "jobs:\n  - id: a\n    shape: [1, 1, 2, 1]\n    weights: [1, 1]\n    graph:\n" +
				tc.graph + "      clusters: [0, 1]\n"
			err := decodeString(t, doc)
			assert.ErrorIs(t, err, pruning.ErrShapeMismatch)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  - id: a\n    shape: [1, 1, 1, 1]\n    weights: [1]\n"), 0o644))

	jobs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
