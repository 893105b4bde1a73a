package ingest

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/metrics"
)

// Row- and entity-scoped failure classes. None of them stops a job.
var (
	ErrParseAnomaly = crerr.New("parse anomaly")
	ErrResolution   = crerr.New("resolution failure")
	ErrPersistence  = crerr.New("persistence error")
)

// Status of one processed entity
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of one row, team, match or league.
type Outcome struct {
	Entity string
	Status Status
	Reason string
	Err    error
}

// Report aggregates the outcomes of one job run.
type Report struct {
	Job      string
	Outcomes []Outcome
}

func NewReport(job string) *Report {
	return &Report{Job: job}
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	metrics.ItemOutcome(r.Job, string(o.Status))
}

func (r *Report) Success(entity string) {
	r.add(Outcome{Entity: entity, Status: StatusSuccess})
}

func (r *Report) Skip(entity, reason string) {
	r.add(Outcome{Entity: entity, Status: StatusSkipped, Reason: reason})
}

// Fail records a failed entity; class is one of the sentinels above.
func (r *Report) Fail(entity string, class, err error) {
	if class != nil {
		err = crerr.Mark(err, class)
	}
	r.add(Outcome{Entity: entity, Status: StatusFailed, Reason: err.Error(), Err: err})
}

// Counts returns succeeded, skipped and failed totals.
func (r *Report) Counts() (succeeded, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Merge appends other's outcomes without recounting metrics.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// Guard runs fn and turns a panic into a failed outcome for entity, so one
// bad team or league cannot end the job.
func (r *Report) Guard(entity string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.Fail(entity, nil, crerr.Newf("panic: %v", p))
		}
	}()
	fn()
}

// LogFields returns the totals as logger key/values.
func (r *Report) LogFields() []any {
	ok, skipped, failed := r.Counts()
	return []any{"job", r.Job, "succeeded", ok, "skipped", skipped, "failed", failed}
}

func (r *Report) String() string {
	ok, skipped, failed := r.Counts()
	return fmt.Sprintf("%s: %d succeeded, %d skipped, %d failed", r.Job, ok, skipped, failed)
}
