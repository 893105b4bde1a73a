package scheduler

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/metrics"
	"github.com/fortuna/pitchside/internal/publisher"
)

// Cadence names a recurring sync.
type Cadence string

const (
	CadenceMatches     Cadence = "matches"
	CadencePredictions Cadence = "predictions"
	CadenceFull        Cadence = "full"
	// CadenceInitial is the one-shot deferred run after start
	CadenceInitial Cadence = "initial"
)

// recurring cadences in the order a single poll fires them
var recurring = []Cadence{CadenceMatches, CadencePredictions, CadenceFull}

var (
	ErrUnknownCadence = crerr.New("unknown cadence")
	// ErrBusy is returned by RunNow while another cadence holds the run lock
	ErrBusy = crerr.New("a sync is already running")
)

// Locker provides cross-instance mutual exclusion. Implemented by
// cache.RedisCache and cache.Local.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Config holds scheduler configuration
type Config struct {
	Leagues []config.League

	MatchInterval      time.Duration // Default: 1h
	PredictionInterval time.Duration // Default: 5h
	FullInterval       time.Duration // Default: 10h
	PollInterval       time.Duration // Default: 1m

	DeferredStart bool
	DeferredDelay time.Duration // Default: 30s
	PanicBackoff  time.Duration // Default: 5m
	LockTTL       time.Duration // Default: 3h

	// Before SeasonStart a full sync refreshes squads, otherwise injuries
	SeasonStart time.Time
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		MatchInterval:      time.Hour,
		PredictionInterval: 5 * time.Hour,
		FullInterval:       10 * time.Hour,
		PollInterval:       time.Minute,
		DeferredStart:      true,
		DeferredDelay:      30 * time.Second,
		PanicBackoff:       5 * time.Minute,
		LockTTL:            3 * time.Hour,
	}
}

// ConfigFrom maps the service configuration onto the scheduler's.
func ConfigFrom(cfg config.Config) Config {
	c := DefaultConfig()
	c.Leagues = cfg.Leagues
	c.MatchInterval = cfg.MatchSyncInterval
	c.PredictionInterval = cfg.PredictionInterval
	c.FullInterval = cfg.FullSyncInterval()
	c.PollInterval = cfg.PollInterval
	c.DeferredStart = cfg.DeferredStart
	c.DeferredDelay = cfg.DeferredStartDelay
	c.SeasonStart = cfg.SeasonStart
	return c
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MatchInterval <= 0 {
		c.MatchInterval = d.MatchInterval
	}
	if c.PredictionInterval <= 0 {
		c.PredictionInterval = d.PredictionInterval
	}
	if c.FullInterval <= 0 {
		c.FullInterval = d.FullInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.DeferredDelay <= 0 {
		c.DeferredDelay = d.DeferredDelay
	}
	if c.PanicBackoff <= 0 {
		c.PanicBackoff = d.PanicBackoff
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	return c
}

func (c Config) interval(cadence Cadence) time.Duration {
	switch cadence {
	case CadenceMatches:
		return c.MatchInterval
	case CadencePredictions:
		return c.PredictionInterval
	case CadenceFull:
		return c.FullInterval
	}
	return 0
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLocker makes every cadence take a named lock first, so two service
// instances never scrape concurrently.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithEvents publishes a summary event per job run.
func WithEvents(sink publisher.EventSink) Option {
	return func(o *Orchestrator) { o.events = sink }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces time.Now and the context-aware sleep.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// Orchestrator owns the poll loop and the cadence triggers. All cadences
// run synchronously on the loop goroutine; the deferred initial run is the
// only other goroutine.
type Orchestrator struct {
	cfg    Config
	jobs   Jobs
	locker Locker
	events publisher.EventSink
	logger *logging.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	next    map[Cadence]time.Time
	last    map[Cadence]RunStatus

	// serializes cadence bodies within the process
	runMu sync.Mutex

	// manual runs started by Trigger; Stop cancels and waits for them
	manual       sync.WaitGroup
	cancelManual context.CancelFunc
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(cfg Config, jobs Jobs, opts ...Option) (*Orchestrator, error) {
	if err := jobs.validate(); err != nil {
		return nil, err
	}
	if len(cfg.Leagues) == 0 {
		return nil, crerr.New("scheduler: no leagues configured")
	}
	o := &Orchestrator{
		cfg:   cfg.withDefaults(),
		jobs:  jobs,
		now:   time.Now,
		sleep: fetch.Sleep,
		next:  make(map[Cadence]time.Time),
		last:  make(map[Cadence]RunStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	o.logger = o.logger.With("component", "scheduler")
	return o, nil
}

// Start registers the recurring triggers and launches the poll loop in the
// background. Calling Start on a running scheduler logs a warning and does
// nothing; the return value reports whether this call started it.
func (o *Orchestrator) Start(ctx context.Context) bool {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		o.logger.Warn("scheduler already running, ignoring start")
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.done = make(chan struct{})
	now := o.now()
	for _, c := range recurring {
		o.next[c] = now.Add(o.cfg.interval(c))
	}
	done := o.done
	o.mu.Unlock()

	o.logger.Info("scheduler started",
		"leagues", len(o.cfg.Leagues),
		"match_interval", o.cfg.MatchInterval.String(),
		"prediction_interval", o.cfg.PredictionInterval.String(),
		"full_interval", o.cfg.FullInterval.String(),
		"deferred_start", o.cfg.DeferredStart)

	var wg sync.WaitGroup
	if o.cfg.DeferredStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.deferredRun(ctx)
		}()
	}
	go func() {
		o.loop(ctx)
		wg.Wait()
		close(done)
	}()
	return true
}

// Stop cancels the loop, any pending deferred run and any triggered run,
// clears the triggers and waits for in-flight work to return.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	running := o.running
	cancel, done := o.cancel, o.done
	cancelManual := o.cancelManual
	o.running = false
	o.cancel = nil
	o.cancelManual = nil
	o.next = make(map[Cadence]time.Time)
	o.mu.Unlock()

	if cancelManual != nil {
		cancelManual()
	}
	if running {
		o.logger.Info("stopping scheduler")
		cancel()
		<-done
	}
	o.manual.Wait()
	if running {
		o.logger.Info("scheduler stopped")
	}
}

// IsRunning reports whether Start has been called without a matching Stop.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// RunNow runs one cadence immediately on the caller's goroutine. It fails
// with ErrBusy instead of queueing behind a running cadence.
func (o *Orchestrator) RunNow(ctx context.Context, cadence Cadence) (RunStatus, error) {
	if !cadence.valid() {
		return RunStatus{}, crerr.Mark(crerr.Newf("cadence %q", cadence), ErrUnknownCadence)
	}
	if !o.runMu.TryLock() {
		return RunStatus{}, ErrBusy
	}
	defer o.runMu.Unlock()

	st := o.execute(ctx, cadence)
	if st.Err != nil {
		return st, st.Err
	}
	return st, nil
}

// Trigger starts one cadence in the background and returns at once. Like
// RunNow it refuses with ErrBusy rather than queueing. Stop cancels the run
// and waits for it.
func (o *Orchestrator) Trigger(ctx context.Context, cadence Cadence) error {
	if !cadence.valid() {
		return crerr.Mark(crerr.Newf("cadence %q", cadence), ErrUnknownCadence)
	}
	if !o.runMu.TryLock() {
		return ErrBusy
	}
	// the request context ends with the response; only Stop ends the run
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.cancelManual = cancel
	o.mu.Unlock()

	o.manual.Add(1)
	go func() {
		defer o.manual.Done()
		defer o.runMu.Unlock()
		defer cancel()
		o.execute(runCtx, cadence)
	}()
	return nil
}

func (c Cadence) valid() bool {
	switch c {
	case CadenceMatches, CadencePredictions, CadenceFull, CadenceInitial:
		return true
	}
	return false
}

func (o *Orchestrator) loop(ctx context.Context) {
	for {
		wait := o.cfg.PollInterval
		if o.poll(ctx) {
			o.logger.Error("scheduler loop error, backing off", "backoff", o.cfg.PanicBackoff.String())
			wait = o.cfg.PanicBackoff
		}
		if err := o.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// poll fires every due cadence. It reports true when a cadence or the poll
// itself panicked.
func (o *Orchestrator) poll(ctx context.Context) (panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("scheduler poll panicked", "panic", p)
			panicked = true
		}
	}()

	for _, c := range o.due() {
		if ctx.Err() != nil {
			return panicked
		}
		o.runMu.Lock()
		st := o.execute(ctx, c)
		o.runMu.Unlock()
		if st.Panicked {
			panicked = true
		}
		o.reschedule(c)
	}
	return panicked
}

func (o *Orchestrator) due() []Cadence {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	var out []Cadence
	for _, c := range recurring {
		next, ok := o.next[c]
		if ok && !now.Before(next) {
			out = append(out, c)
		}
	}
	return out
}

func (o *Orchestrator) reschedule(c Cadence) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.next[c] = o.now().Add(o.cfg.interval(c))
}

func (o *Orchestrator) deferredRun(ctx context.Context) {
	o.logger.Info("initial sync deferred", "delay", o.cfg.DeferredDelay.String())
	if err := o.sleep(ctx, o.cfg.DeferredDelay); err != nil {
		return
	}
	o.runMu.Lock()
	defer o.runMu.Unlock()
	o.execute(ctx, CadenceInitial)
}

// execute runs one cadence body with a run id, the cross-instance lock and
// panic containment. Callers hold runMu.
func (o *Orchestrator) execute(ctx context.Context, cadence Cadence) (st RunStatus) {
	ctx, runID := logging.WithRunID(ctx)
	logger := o.logger.With("cadence", string(cadence))
	start := o.now()
	st = RunStatus{Cadence: cadence, RunID: runID, StartedAt: start}

	defer func() {
		if p := recover(); p != nil {
			st.Panicked = true
			st.Err = crerr.Newf("cadence %s panicked: %v", cadence, p)
			logger.ErrorContext(ctx, "cadence panicked", "panic", p)
		}
		st.Duration = o.now().Sub(start)
		if st.Err != nil {
			st.Error = st.Err.Error()
		}
		metrics.CadenceRun(string(cadence), st.Duration, st.Err)
		o.recordRun(st)
	}()

	if o.locker != nil {
		release, ok, err := o.locker.TryLock(ctx, "cadence:"+string(cadence), o.cfg.LockTTL)
		if err != nil {
			logger.WarnContext(ctx, "cadence lock unavailable, running unlocked", "err", err)
		} else if !ok {
			st.Skipped = true
			logger.InfoContext(ctx, "cadence held by another instance, skipping")
			return st
		} else {
			defer release()
		}
	}

	logger.InfoContext(ctx, "cadence starting")
	st.Err = o.runCadence(ctx, cadence)
	if st.Err != nil {
		logger.ErrorContext(ctx, "cadence ended early", "err", st.Err)
	} else {
		logger.InfoContext(ctx, "cadence finished", "elapsed", o.now().Sub(start).String())
	}
	return st
}

func (o *Orchestrator) runCadence(ctx context.Context, cadence Cadence) error {
	switch cadence {
	case CadenceMatches:
		return o.syncMatches(ctx, cadence)
	case CadencePredictions:
		return o.fillPredictions(ctx, cadence)
	case CadenceFull:
		return o.fullSync(ctx)
	case CadenceInitial:
		if err := o.syncMatches(ctx, cadence); err != nil {
			return err
		}
		return o.fillPredictions(ctx, cadence)
	}
	return crerr.Mark(crerr.Newf("cadence %q", cadence), ErrUnknownCadence)
}
