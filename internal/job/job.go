package job

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/obinexus/bpets/internal/pipeline"
	"github.com/obinexus/bpets/internal/pruning"
	"github.com/obinexus/bpets/internal/tensor"
)

// Fill kinds for generated tensor data.
const (
	FillData     = "data"
	FillZeros    = "zeros"
	FillOnes     = "ones"
	FillSequence = "sequence"
	FillRandom   = "random"
)

// maxElements caps generated tensors so a typo in a shape cannot exhaust
// memory.
const maxElements = 1 << 24

// File is the top-level layout of a jobs file.
type File struct {
	Jobs []Entry `yaml:"jobs"`
}

// Entry describes one job as written in YAML.
type Entry struct {
	ID    string `yaml:"id"`
	Shape []int  `yaml:"shape"`

	// Data is the flat row-major tensor content. When set it wins over Fill.
	Data []float64 `yaml:"data"`

	// Fill generates the tensor when Data is empty:
	// zeros | ones | sequence (1, 2, 3, ...) | random (uniform [0,1)).
	// Defaults to sequence.
	Fill string `yaml:"fill"`

	// Seed drives the random fill.
	Seed int64 `yaml:"seed"`

	Weights []float64 `yaml:"weights"`
	Tau     float64   `yaml:"tau"`

	Graph *GraphEntry `yaml:"graph"`
}

// GraphEntry is the optional edge/cluster pruning input of a job.
type GraphEntry struct {
	Adjacency   [][]float64 `yaml:"adjacency"`
	EdgeWeights [][]float64 `yaml:"edge_weights"`
	Clusters    []int       `yaml:"clusters"`
	Tau         float64     `yaml:"tau"`
}

// Load reads the jobs file at path.
func Load(path string) ([]pipeline.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("job: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a jobs document and builds one pipeline.Job per entry.
// Unknown keys are rejected so a misspelt field does not silently fall back
// to a default.
func Decode(r io.Reader) ([]pipeline.Job, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("job: no jobs defined")
		}
		return nil, fmt.Errorf("job: parse yaml: %w", err)
	}
	if len(file.Jobs) == 0 {
		return nil, fmt.Errorf("job: no jobs defined")
	}

	jobs := make([]pipeline.Job, 0, len(file.Jobs))
	seen := make(map[string]bool, len(file.Jobs))
	for i, e := range file.Jobs {
		if e.ID == "" {
			return nil, fmt.Errorf("job: jobs[%d]: id is required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("job: jobs[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true

		j, err := e.Job()
		if err != nil {
			return nil, fmt.Errorf("job: jobs[%d] %q: %w", i, e.ID, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Job converts the entry into a pipeline.Job. Shape agreement between the
// tensor, weights and graph is left to the pruning operators.
func (e Entry) Job() (pipeline.Job, error) {
	t, err := e.tensor()
	if err != nil {
		return pipeline.Job{}, err
	}
	if len(e.Weights) == 0 {
		return pipeline.Job{}, fmt.Errorf("weights are required")
	}

	j := pipeline.Job{
		ID:      e.ID,
		Tensor:  t,
		Weights: e.Weights,
		Tau:     e.Tau,
	}
	if e.Graph != nil {
		g, err := e.Graph.graph()
		if err != nil {
			return pipeline.Job{}, fmt.Errorf("graph: %w", err)
		}
		j.Graph = g
	}
	return j, nil
}

func (e Entry) tensor() (*tensor.Tensor, error) {
	if len(e.Shape) == 0 {
		return nil, fmt.Errorf("shape is required")
	}
	size := 1
	for i, d := range e.Shape {
		if d <= 0 {
			return nil, fmt.Errorf("shape[%d] must be positive, got %d", i, d)
		}
		size *= d
		if size > maxElements {
			return nil, fmt.Errorf("shape %v exceeds %d elements", e.Shape, maxElements)
		}
	}

	if len(e.Data) > 0 {
		return tensor.FromSlice(e.Data, e.Shape...)
	}

	t := tensor.New(e.Shape...)
	switch e.Fill {
	case FillSequence, "":
		for i := range t.Data {
			t.Data[i] = float64(i + 1)
		}
	case FillZeros:
	case FillOnes:
		for i := range t.Data {
			t.Data[i] = 1
		}
	case FillRandom:
		rng := rand.New(rand.NewSource(e.Seed))
		for i := range t.Data {
			t.Data[i] = rng.Float64()
		}
	case FillData:
		return nil, fmt.Errorf("fill %q requires data", FillData)
	default:
		return nil, fmt.Errorf("unknown fill %q", e.Fill)
	}
	return t, nil
}

func (g *GraphEntry) graph() (*pipeline.Graph, error) {
	adj, err := squareMatrix("adjacency", g.Adjacency)
	if err != nil {
		return nil, err
	}
	w, err := squareMatrix("edge_weights", g.EdgeWeights)
	if err != nil {
		return nil, err
	}
	if len(g.Clusters) == 0 {
		return nil, fmt.Errorf("clusters are required")
	}
	return &pipeline.Graph{
		Adjacency:   adj,
		EdgeWeights: w,
		Clusters:    g.Clusters,
		Tau:         g.Tau,
	}, nil
}

// squareMatrix builds an n x n dense matrix from nested rows. A ragged or
// non-square row is reported as pruning.ErrShapeMismatch, the same error the
// operators give for a mismatched matrix.
func squareMatrix(name string, rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%s is required", name)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: %s row %d has %d entries, want %d",
				pruning.ErrShapeMismatch, name, i, len(row), n)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}
