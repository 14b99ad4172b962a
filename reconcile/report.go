package reconcile

import (
	"errors"
	"time"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

type Status string

const (
	StatusUnresolved Status = "unresolved"
	StatusResolved   Status = "resolved"
	StatusConverged  Status = "converged"
	StatusDiverged   Status = "diverged"
	StatusWriting    Status = "writing"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// PathwayResult is the outcome of one pathway in one run.
type PathwayResult struct {
	Pathway  string                       `json:"pathway" yaml:"pathway"`
	From     types.EID                    `json:"from" yaml:"from"`
	To       types.EID                    `json:"to" yaml:"to"`
	Status   Status                       `json:"status" yaml:"status"`
	Config   *types.ResolvedPathwayConfig `json:"config,omitempty" yaml:"config,omitempty"`
	Changes  []Change                     `json:"changes,omitempty" yaml:"changes,omitempty"`
	Writes   int                          `json:"writes" yaml:"writes"`
	Error    string                       `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration                `json:"duration" yaml:"duration"`

	Err error `json:"-" yaml:"-"`
}

// Summary counts pathway outcomes. Unchanged and Updated pathways both converged.
type Summary struct {
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Updated   int `json:"updated" yaml:"updated"`
	Diverged  int `json:"diverged" yaml:"diverged"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Writes    int `json:"writes" yaml:"writes"`
}

// Report holds every pathway result of a run, in graph order.
type Report struct {
	Started  time.Time       `json:"started" yaml:"started"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
	DryRun   bool            `json:"dry_run" yaml:"dry-run"`
	Pathways []PathwayResult `json:"pathways" yaml:"pathways"`
	Summary  Summary         `json:"summary" yaml:"summary"`
}

// Err joins the errors of failed and skipped pathways, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, p := range r.Pathways {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// Pathway returns the result for a pathway key.
func (r *Report) Pathway(key string) (PathwayResult, bool) {
	for _, p := range r.Pathways {
		if p.Pathway == key {
			return p, true
		}
	}
	return PathwayResult{}, false
}

func summarize(results []PathwayResult) Summary {
	var s Summary
	for _, r := range results {
		s.Writes += r.Writes
		switch r.Status {
		case StatusConverged:
			if r.Writes > 0 {
				s.Updated++
			} else {
				s.Unchanged++
			}
		case StatusDiverged:
			s.Diverged++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
