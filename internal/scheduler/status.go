package scheduler

import "time"

// RunStatus describes one cadence invocation.
type RunStatus struct {
	Cadence   Cadence       `json:"cadence"`
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Skipped   bool          `json:"skipped,omitempty"`
	Panicked  bool          `json:"panicked,omitempty"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
}

// CadenceStatus is the schedule of one recurring cadence.
type CadenceStatus struct {
	Name     Cadence    `json:"name"`
	Interval string     `json:"interval"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *RunStatus `json:"last_run,omitempty"`
}

// Status is a snapshot for the status API.
type Status struct {
	Running   bool            `json:"running"`
	PreSeason bool            `json:"pre_season"`
	Leagues   []string        `json:"leagues"`
	Cadences  []CadenceStatus `json:"cadences"`
	Initial   *RunStatus      `json:"initial_run,omitempty"`
}

func (o *Orchestrator) recordRun(st RunStatus) {
	o.mu.Lock()
	o.last[st.Cadence] = st
	o.mu.Unlock()
}

// Status returns the current schedule and the last run of each cadence.
func (o *Orchestrator) Status() Status {
	s := Status{PreSeason: o.PreSeason()}
	for _, l := range o.cfg.Leagues {
		s.Leagues = append(s.Leagues, l.SourceID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	s.Running = o.running
	for _, c := range recurring {
		cs := CadenceStatus{Name: c, Interval: o.cfg.interval(c).String()}
		if next, ok := o.next[c]; ok {
			cs.NextRun = &next
		}
		if last, ok := o.last[c]; ok {
			cs.LastRun = &last
		}
		s.Cadences = append(s.Cadences, cs)
	}
	if initial, ok := o.last[CadenceInitial]; ok {
		s.Initial = &initial
	}
	return s
}
