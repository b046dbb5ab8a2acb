package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
)

// Summary is one job's row recovered from a report.
type Summary struct {
	Job            string
	Energy         float64
	FOD            float64
	Rank           int
	FeaturesKept   int
	FeaturesPruned int
	EdgesKept      int
	EdgesPruned    int
	NearTolerance  int

	// Firing lists "severity:rule" for every rule firing on the job.
	Firing []string
}

// Summaries reduces metric families produced by Write back to one Summary
// per job, sorted by job name. Families that are not part of the report
// are ignored.
func Summaries(mfs map[string]*dto.MetricFamily) []Summary {
	rows := make(map[string]*Summary)
	row := func(job string) *Summary {
		if s, ok := rows[job]; ok {
			return s
		}
		s := &Summary{Job: job}
		rows[job] = s
		return s
	}

	setters := map[string]func(*Summary, float64){
		fullName(metricEnergy):         func(s *Summary, v float64) { s.Energy = v },
		fullName(metricFOD):            func(s *Summary, v float64) { s.FOD = v },
		fullName(metricRank):           func(s *Summary, v float64) { s.Rank = int(v) },
		fullName(metricFeaturesKept):   func(s *Summary, v float64) { s.FeaturesKept = int(v) },
		fullName(metricFeaturesPruned): func(s *Summary, v float64) { s.FeaturesPruned = int(v) },
		fullName(metricEdgesKept):      func(s *Summary, v float64) { s.EdgesKept = int(v) },
		fullName(metricEdgesPruned):    func(s *Summary, v float64) { s.EdgesPruned = int(v) },
		fullName(metricNearTolerance):  func(s *Summary, v float64) { s.NearTolerance = int(v) },
	}
	for name, set := range setters {
		for _, m := range mfs[name].GetMetric() {
			job := labelValue(m, labelJob)
			if job == "" {
				continue
			}
			set(row(job), metricValue(m))
		}
	}
	for _, m := range mfs[fullName(metricRuleFiring)].GetMetric() {
		job := labelValue(m, labelJob)
		if job == "" || metricValue(m) == 0 {
			continue
		}
		s := row(job)
		s.Firing = append(s.Firing, labelValue(m, labelSeverity)+":"+labelValue(m, labelRule))
	}

	out := make([]Summary, 0, len(rows))
	for _, s := range rows {
		sort.Strings(s.Firing)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// PrintSummaries writes one aligned line per job.
func PrintSummaries(w io.Writer, rows []Summary) error {
	if _, err := fmt.Fprintf(w, "%-20s %8s %8s %5s %9s %9s %s\n",
		"JOB", "ENERGY", "FOD", "RANK", "FEATURES", "EDGES", "FIRING"); err != nil {
		return err
	}
	for _, s := range rows {
		firing := "-"
		if len(s.Firing) > 0 {
			firing = strings.Join(s.Firing, ",")
		}
		if _, err := fmt.Fprintf(w, "%-20s %8s %8s %5d %9s %9s %s\n",
			s.Job,
			formatFloat(s.Energy),
			formatFloat(s.FOD),
			s.Rank,
			fmt.Sprintf("%d/%d", s.FeaturesKept, s.FeaturesKept+s.FeaturesPruned),
			fmt.Sprintf("%d/%d", s.EdgesKept, s.EdgesKept+s.EdgesPruned),
			firing,
		); err != nil {
			return err
		}
	}
	return nil
}
