package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"parsewright/internal/compare"
	"parsewright/internal/feedback"
	"parsewright/internal/generation"
	"parsewright/internal/logging"
	"parsewright/internal/runner"
	"parsewright/internal/tabular"
)

// Config bounds one run.
type Config struct {
	// MaxAttempts caps candidate executions. The loop performs at most
	// MaxAttempts comparisons and MaxAttempts-1 repair calls.
	MaxAttempts int

	// TaskTimeout is the wall clock for a whole run, applied by
	// RunToCompletion. Zero means no deadline beyond the caller's context.
	TaskTimeout time.Duration

	// RetryDelay is the pause between a repair and the next execution.
	RetryDelay time.Duration
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		TaskTimeout: 3 * time.Minute,
		RetryDelay:  2 * time.Second,
	}
}

// Recorder receives one row per validation attempt as it happens. The run
// history store implements this.
type Recorder interface {
	RecordAttempt(runID string, attempt int, kind, summary, report string, duration time.Duration) error
}

// AttemptOutcome summarizes one execution-and-validation cycle.
type AttemptOutcome struct {
	Attempt  int
	Kind     compare.Kind
	Summary  string
	Report   compare.Report
	Duration time.Duration
}

// Result is the terminal outcome of a run. Final carries the last candidate
// revision whether the run succeeded or exhausted its budget.
type Result struct {
	Succeeded   bool
	State       State
	Attempts    int
	Comparisons int
	Repairs     int
	Final       *generation.Artifact
	Report      compare.Report
	History     []Transition
	Outcomes    []AttemptOutcome
}

// Params carries the collaborators a loop needs. Generator, Runner,
// Expected, and InputPath are required; the rest are optional.
type Params struct {
	Config    Config
	Generator generation.Generator
	Runner    runner.Runner
	Expected  *tabular.Dataset
	InputPath string
	Task      generation.TaskDescription
	Formatter *feedback.Formatter

	// Artifacts, when set, persists every candidate revision as it is
	// produced.
	Artifacts *generation.ArtifactStore

	// Recorder, when set together with RunID, persists every attempt
	// verdict as it is produced.
	Recorder Recorder
	RunID    string
}

// Loop owns one generate/validate/repair session for a single target.
//
// Control flow is strictly sequential; the mutex only guards the state
// snapshot accessors against observation from other goroutines. Faults
// raised by candidates never leave the runner boundary: they become
// reports and drive the next repair. Only infrastructure failures
// (generation port, artifact or history writes) abort a run with an error.
type Loop struct {
	mu sync.RWMutex

	cfg       Config
	gen       generation.Generator
	runner    runner.Runner
	expected  *tabular.Dataset
	inputPath string
	task      generation.TaskDescription
	formatter *feedback.Formatter

	artifacts *generation.ArtifactStore
	recorder  Recorder
	runID     string
	target    string

	state        State
	attempt      int
	current      *generation.Artifact
	actual       *tabular.Dataset
	lastFault    *runner.Fault
	lastReport   compare.Report
	attemptStart time.Time
	comparisons  int
	repairs      int
	history      []Transition
	outcomes     []AttemptOutcome
}

// New assembles a loop in the Generating state.
func New(p Params) (*Loop, error) {
	if p.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if p.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if p.Expected == nil {
		return nil, fmt.Errorf("expected dataset is required")
	}
	if p.InputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}

	cfg := p.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	fmtr := p.Formatter
	if fmtr == nil {
		fmtr = feedback.NewFormatter(nil)
	}

	return &Loop{
		cfg:       cfg,
		gen:       p.Generator,
		runner:    p.Runner,
		expected:  tabular.Normalize(p.Expected),
		inputPath: p.InputPath,
		task:      p.Task,
		formatter: fmtr,
		artifacts: p.Artifacts,
		recorder:  p.Recorder,
		runID:     p.RunID,
		target:    p.Task.Target,
		state:     StateGenerating,
	}, nil
}

// State returns the current machine state.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Attempt returns the number of candidate executions started so far.
func (l *Loop) Attempt() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.attempt
}

// Current returns the latest candidate revision.
func (l *Loop) Current() *generation.Artifact {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// History returns a copy of the recorded transitions.
func (l *Loop) History() []Transition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transition, len(l.history))
	copy(out, l.history)
	return out
}

// NextAction reports what the next Step will do.
func (l *Loop) NextAction() Action {
	switch l.State() {
	case StateGenerating:
		return ActionGenerate
	case StateRunning:
		return ActionExecute
	case StateComparing:
		return ActionValidate
	case StateRepairing:
		return ActionRepair
	default:
		return ActionHalt
	}
}

// Step performs exactly one action and returns the resulting state.
// Stepping a terminal loop is a no-op.
func (l *Loop) Step(ctx context.Context) (State, error) {
	select {
	case <-ctx.Done():
		return l.State(), ctx.Err()
	default:
	}

	var err error
	switch l.State() {
	case StateGenerating:
		err = l.stepGenerate(ctx)
	case StateRunning:
		err = l.stepExecute(ctx)
	case StateComparing:
		err = l.stepValidate()
	case StateRepairing:
		err = l.stepRepair(ctx)
	}
	return l.State(), err
}

// RunToCompletion steps the machine until it reaches a terminal state,
// under the configured whole-run deadline.
func (l *Loop) RunToCompletion(ctx context.Context) (*Result, error) {
	if l.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.TaskTimeout)
		defer cancel()
	}

	logging.Loop("=== Starting run %s: target=%s maxAttempts=%d ===", l.runID, l.target, l.cfg.MaxAttempts)

	for {
		state, err := l.Step(ctx)
		if err != nil {
			logging.LoopError("Run %s aborted in state %s: %v", l.runID, state, err)
			return nil, err
		}
		if state.Terminal() {
			return l.Result(), nil
		}
	}
}

// Result snapshots the outcome. Complete once the loop is terminal;
// earlier calls see the partial picture.
func (l *Loop) Result() *Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := make([]Transition, len(l.history))
	copy(history, l.history)
	outcomes := make([]AttemptOutcome, len(l.outcomes))
	copy(outcomes, l.outcomes)

	return &Result{
		Succeeded:   l.state == StateSucceeded,
		State:       l.state,
		Attempts:    l.attempt,
		Comparisons: l.comparisons,
		Repairs:     l.repairs,
		Final:       l.current,
		Report:      l.lastReport,
		History:     history,
		Outcomes:    outcomes,
	}
}

func (l *Loop) stepGenerate(ctx context.Context) error {
	logging.Loop("Generating initial candidate for target %s", l.target)

	a, err := l.gen.Generate(ctx, l.task)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if err := l.saveRevision(1, a); err != nil {
		return err
	}

	l.mu.Lock()
	l.current = a
	l.transitionLocked(StateRunning, ActionGenerate, map[string]string{
		"model":    a.Model,
		"revision": "1",
	})
	l.mu.Unlock()
	return nil
}

func (l *Loop) stepExecute(ctx context.Context) error {
	l.mu.Lock()
	l.attempt++
	attempt := l.attempt
	source := l.current.Source
	l.attemptStart = time.Now()
	l.mu.Unlock()

	logging.Loop("Attempt %d/%d: executing candidate (%d bytes)", attempt, l.cfg.MaxAttempts, len(source))

	ds, fault := l.runner.Run(ctx, source, l.inputPath)

	l.mu.Lock()
	l.actual = ds
	l.lastFault = fault
	meta := map[string]string{"attempt": strconv.Itoa(attempt)}
	if fault != nil {
		meta["fault"] = string(fault.Reason)
	} else {
		meta["rows"] = strconv.Itoa(ds.RowCount())
	}
	l.transitionLocked(StateComparing, ActionExecute, meta)
	l.mu.Unlock()

	if fault != nil {
		logging.LoopWarn("Attempt %d: execution fault (%s): %s", attempt, fault.Reason, fault.Message)
	} else {
		logging.LoopDebug("Attempt %d: candidate returned %d rows, %d columns", attempt, ds.RowCount(), ds.ColumnCount())
	}
	return nil
}

func (l *Loop) stepValidate() error {
	l.mu.RLock()
	fault := l.lastFault
	actual := l.actual
	attempt := l.attempt
	started := l.attemptStart
	l.mu.RUnlock()

	var report compare.Report
	if fault != nil {
		report = ReportForFault(fault)
	} else {
		report = compare.Compare(l.expected, tabular.Normalize(actual))
	}
	duration := time.Since(started)

	logging.Compare("Attempt %d verdict: %s", attempt, report.Summary())

	if err := l.recordAttempt(attempt, report, duration); err != nil {
		return err
	}

	l.mu.Lock()
	l.comparisons++
	l.lastReport = report
	l.outcomes = append(l.outcomes, AttemptOutcome{
		Attempt:  attempt,
		Kind:     report.Kind,
		Summary:  report.Summary(),
		Report:   report,
		Duration: duration,
	})
	meta := map[string]string{
		"attempt": strconv.Itoa(attempt),
		"kind":    string(report.Kind),
	}
	switch {
	case report.IsMatch():
		l.transitionLocked(StateSucceeded, ActionValidate, meta)
		l.mu.Unlock()
		logging.Loop("Attempt %d matched; run %s succeeded", attempt, l.runID)
	case attempt < l.cfg.MaxAttempts:
		l.transitionLocked(StateRepairing, ActionValidate, meta)
		l.mu.Unlock()
	default:
		l.transitionLocked(StateExhausted, ActionValidate, meta)
		l.mu.Unlock()
		logging.LoopWarn("Run %s exhausted after %d attempts: %s", l.runID, attempt, report.Summary())
	}
	return nil
}

func (l *Loop) stepRepair(ctx context.Context) error {
	l.mu.RLock()
	current := l.current
	report := l.lastReport
	attempt := l.attempt
	l.mu.RUnlock()

	fb := l.formatter.Format(report)
	logging.LoopDebug("Attempt %d feedback: %d chars", attempt, len(fb))

	revised, err := l.gen.Repair(ctx, current, fb)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}
	if err := l.saveRevision(attempt+1, revised); err != nil {
		return err
	}

	l.mu.Lock()
	l.repairs++
	l.current = revised
	l.transitionLocked(StateRunning, ActionRepair, map[string]string{
		"revision": strconv.Itoa(attempt + 1),
	})
	l.mu.Unlock()

	if l.cfg.RetryDelay > 0 {
		select {
		case <-time.After(l.cfg.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *Loop) saveRevision(revision int, a *generation.Artifact) error {
	if l.artifacts == nil {
		return nil
	}
	path, err := l.artifacts.Save(l.target, revision, a)
	if err != nil {
		return fmt.Errorf("failed to persist candidate: %w", err)
	}
	logging.LoopDebug("Candidate revision %d written to %s", revision, path)
	return nil
}

func (l *Loop) recordAttempt(attempt int, report compare.Report, duration time.Duration) error {
	if l.recorder == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := l.recorder.RecordAttempt(l.runID, attempt, string(report.Kind), report.Summary(), string(payload), duration); err != nil {
		return fmt.Errorf("failed to record attempt %d: %w", attempt, err)
	}
	return nil
}

// ReportForFault converts a contained runner fault into a report:
// entry-point contract violations read as type mismatches, everything else
// as an execution fault.
func ReportForFault(f *runner.Fault) compare.Report {
	kind := compare.KindExecutionFault
	if f.ContractViolation() {
		kind = compare.KindTypeMismatch
	}
	return compare.NewFaultReport(kind, string(f.Reason), f.Message, f.Trace)
}

// transitionLocked appends a history entry and moves the machine. Callers
// hold the write lock.
func (l *Loop) transitionLocked(to State, action Action, meta map[string]string) {
	l.history = append(l.history, Transition{
		From:      l.state,
		To:        to,
		Action:    action,
		Timestamp: time.Now(),
		Metadata:  meta,
	})
	l.state = to
}
