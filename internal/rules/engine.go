package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obinexus/bpets/internal/config"
	"github.com/obinexus/bpets/internal/pipeline"
)

// Finding states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

const defaultSeverity = "warning"

// Finding is one rule outcome for one job.
type Finding struct {
	Rule       string
	JobID      string
	Severity   string
	Message    string
	Value      float64
	State      string // "firing" | "resolved"
	FiredAt    time.Time
	ResolvedAt *time.Time
}

type rule struct {
	config.Rule
	cond config.Condition
}

// Engine evaluates rules against job results and tracks which
// (rule, job) pairs are firing, so repeated evaluations in watch mode
// report transitions rather than repeating themselves.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules []rule

	mu     sync.Mutex
	active map[string]*Finding // key: "rule:job"
	now    func() time.Time    // injectable for deterministic tests
}

// New compiles the configured rules. Conditions are parsed up front so a
// bad rule fails here rather than silently never firing.
func New(cfgRules []config.Rule) (*Engine, error) {
	e := &Engine{
		active: make(map[string]*Finding),
		now:    time.Now,
	}
	for i, r := range cfgRules {
		cond, err := r.Parse()
		if err != nil {
			return nil, fmt.Errorf("rules[%d] %q: %w", i, r.Name, err)
		}
		if r.Severity == "" {
			r.Severity = defaultSeverity
		}
		e.rules = append(e.rules, rule{Rule: r, cond: cond})
	}
	return e, nil
}

// Evaluate tests every rule against res. It returns the findings whose
// state changed: newly firing pairs, and previously firing pairs whose
// condition no longer holds (resolved).
func (e *Engine) Evaluate(res *pipeline.Result) []Finding {
	var changed []Finding

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, r := range e.rules {
		key := r.Name + ":" + res.JobID
		fires, value := evalCondition(r.cond, res)

		a, wasFiring := e.active[key]
		switch {
		case fires && !wasFiring:
			f := &Finding{
				Rule:     r.Name,
				JobID:    res.JobID,
				Severity: r.Severity,
				Value:    value,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s (%s = %g)",
					r.Severity, r.Name, res.JobID, r.Condition, r.cond.Field, value),
				State:   StateFiring,
				FiredAt: now,
			}
			e.active[key] = f
			changed = append(changed, *f)
			slog.Warn("rule fired",
				"rule", r.Name,
				"job", res.JobID,
				"value", value,
				"severity", r.Severity,
			)

		case fires && wasFiring:
			a.Value = value

		case !fires && wasFiring:
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			a.Value = value
			delete(e.active, key)
			changed = append(changed, *a)
			slog.Info("rule resolved",
				"rule", r.Name,
				"job", res.JobID,
			)
		}
	}
	return changed
}

// Active returns copies of all currently firing findings, ordered by job
// then rule.
func (e *Engine) Active() []Finding {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Finding, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JobID != out[j].JobID {
			return out[i].JobID < out[j].JobID
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// Forget drops firing state for jobs not in keep without reporting them as
// resolved. Used when a reload removes jobs from the batch.
func (e *Engine) Forget(keep map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, a := range e.active {
		if !keep[a.JobID] {
			delete(e.active, key)
		}
	}
}
