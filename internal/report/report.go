package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obinexus/bpets/internal/pipeline"
	"github.com/obinexus/bpets/internal/rules"
)

const namespace = "bpets"

// Metric names, without the namespace prefix.
const (
	metricEnergy         = "energy"
	metricFOD            = "fod_score"
	metricRank           = "numerical_rank"
	metricFeaturesKept   = "features_kept"
	metricFeaturesPruned = "features_pruned"
	metricEdgesKept      = "edges_kept"
	metricEdgesPruned    = "edges_pruned"
	metricNearTolerance  = "rank_near_tolerance"
	metricRuleFiring     = "rule_firing"
)

// Label names.
const (
	labelJob      = "job"
	labelRule     = "rule"
	labelSeverity = "severity"
)

// StdoutPath is the Output value that selects standard output.
const StdoutPath = "-"

// jobGauge binds a per-job gauge to the Result field it exports.
type jobGauge struct {
	vec   *prometheus.GaugeVec
	value func(*pipeline.Result) float64
}

func newJobGauges() []jobGauge {
	g := func(name, help string, value func(*pipeline.Result) float64) jobGauge {
		return jobGauge{
			vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, []string{labelJob}),
			value: value,
		}
	}
	return []jobGauge{
		g(metricEnergy, "Normalized Hamiltonian energy H_norm = min(1, sum(w)/h_crit).",
			func(r *pipeline.Result) float64 { return r.Energy }),
		g(metricFOD, "Freedom-of-Dexterity score in [0, 6].",
			func(r *pipeline.Result) float64 { return r.FOD }),
		g(metricRank, "Numerical rank of the flattened pruned tensor.",
			func(r *pipeline.Result) float64 { return float64(r.Rank) }),
		g(metricFeaturesKept, "Features whose weight cleared the node threshold.",
			func(r *pipeline.Result) float64 { return float64(r.FeaturesKept) }),
		g(metricFeaturesPruned, "Features zeroed by node pruning.",
			func(r *pipeline.Result) float64 { return float64(r.FeaturesPruned) }),
		g(metricEdgesKept, "Non-zero adjacency entries surviving edge/cluster pruning.",
			func(r *pipeline.Result) float64 { return float64(r.EdgesKept) }),
		g(metricEdgesPruned, "Non-zero adjacency entries zeroed by edge/cluster pruning.",
			func(r *pipeline.Result) float64 { return float64(r.EdgesPruned) }),
		g(metricNearTolerance, "Singular values within one decade of the rank tolerance.",
			func(r *pipeline.Result) float64 { return float64(r.NearTolerance) }),
	}
}

// Gather builds the metric families for a batch of results and the rule
// findings currently firing. Families are sorted by name, metrics by label.
func Gather(results []*pipeline.Result, firing []rules.Finding) ([]*dto.MetricFamily, error) {
	reg := prometheus.NewRegistry()

	gauges := newJobGauges()
	for _, g := range gauges {
		if err := reg.Register(g.vec); err != nil {
			return nil, fmt.Errorf("report: register: %w", err)
		}
	}
	ruleVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      metricRuleFiring,
		Help:      "1 while a rule condition holds for a job.",
	}, []string{labelJob, labelRule, labelSeverity})
	if err := reg.Register(ruleVec); err != nil {
		return nil, fmt.Errorf("report: register: %w", err)
	}

	for _, res := range results {
		for _, g := range gauges {
			g.vec.WithLabelValues(res.JobID).Set(g.value(res))
		}
	}
	for _, f := range firing {
		if f.State != rules.StateFiring {
			continue
		}
		ruleVec.WithLabelValues(f.JobID, f.Rule, f.Severity).Set(1)
	}

	mfs, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("report: gather: %w", err)
	}
	return mfs, nil
}

// Write encodes the report in the Prometheus text exposition format.
func Write(w io.Writer, results []*pipeline.Result, firing []rules.Finding) error {
	mfs, err := Gather(results, firing)
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("report: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the report to path, or to stdout when path is "-". Files
// are written to a temporary sibling and renamed into place so a reader
// never sees a partial report.
func WriteFile(path string, results []*pipeline.Result, firing []rules.Finding) error {
	if path == StdoutPath {
		return Write(os.Stdout, results, firing)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, results, firing); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: rename: %w", err)
	}
	return nil
}

// Read decodes a Prometheus text exposition into metric families keyed by
// name. A partial result with a non-fatal parse warning is still returned.
func Read(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("report: parse text: %w", err)
	}
	return mfs, nil
}

// ReadFile is Read on the file at path.
func ReadFile(path string) (map[string]*dto.MetricFamily, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// labelValue returns the value of the named label on m, or "".
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// metricValue returns the gauge, counter or untyped value of m.
func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

// fullName prefixes a metric name with the namespace.
func fullName(metric string) string {
	return namespace + "_" + metric
}

// formatFloat renders v the way the CLI prints report values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
