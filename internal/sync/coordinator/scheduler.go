package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	pkgsync "github.com/stacklok/toolhive-catalog-sync/internal/sync"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
	"github.com/stacklok/toolhive-catalog-sync/internal/versions"
)

// State is the lifecycle state of a connector's scheduler
type State string

const (
	// StateIdle means the scheduler is waiting for the next deadline or a refresh
	StateIdle State = "Idle"
	// StateRunning means a cycle is in progress
	StateRunning State = "Running"
	// StateStopping means a stop was requested and the running cycle is finishing
	StateStopping State = "Stopping"
	// StateStopped is terminal
	StateStopped State = "Stopped"
)

// ErrSchedulerStopped is returned when starting a scheduler that has already stopped
var ErrSchedulerStopped = errors.New("scheduler already stopped")

// errAlreadyStarted is returned when Start is called twice
var errAlreadyStarted = errors.New("scheduler already started")

// Scheduler runs the reconciliation cycles of one connector.
//
// At most one cycle runs at a time. A cycle starts when the previous one
// started at least one interval ago, or as soon as Refresh is called.
// Refresh requests received while a cycle runs are coalesced into a single
// follow-up cycle.
type Scheduler struct {
	manager   pkgsync.Manager
	statusSvc state.ConnectorStateService
	log       *audit.Log
	metrics   *telemetry.SyncMetrics
	name      string
	interval  time.Duration

	mu          sync.Mutex
	state       State
	started     bool
	pending     bool
	status      *status.CycleStatus
	cycleCancel context.CancelFunc

	refreshCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithSchedulerAuditSink sets the sink receiving lifecycle audit events
func WithSchedulerAuditSink(sink audit.Sink) SchedulerOption {
	return func(s *Scheduler) {
		s.log = audit.NewLog(sink, s.name)
	}
}

// WithSchedulerMetrics records the duration of every cycle
func WithSchedulerMetrics(metrics *telemetry.SyncMetrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// WithStateService persists the cycle status through svc
func WithStateService(svc state.ConnectorStateService) SchedulerOption {
	return func(s *Scheduler) {
		s.statusSvc = svc
	}
}

// WithInterval overrides the poll interval from the connector configuration
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// NewScheduler creates the scheduler of the connector reconciled by manager
func NewScheduler(manager pkgsync.Manager, opts ...SchedulerOption) *Scheduler {
	cfg := manager.Connector()
	s := &Scheduler{
		manager:   manager,
		name:      cfg.Name,
		interval:  cfg.GetInterval(),
		log:       audit.NewLog(nil, cfg.Name),
		state:     StateIdle,
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = &status.CycleStatus{
		Phase:    status.CyclePhasePending,
		Interval: s.interval.String(),
	}
	return s
}

// Name returns the connector name
func (s *Scheduler) Name() string {
	return s.name
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a copy of the connector's cycle status
func (s *Scheduler) Status() *status.CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Clone()
}

// Start runs cycles until Stop is called or ctx is cancelled. The first cycle
// starts immediately.
//
// Start returns nil after a stop. It returns the cycle error when the
// connector stops because its metadata types never became available.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateStopping || s.state == StateStopped:
		s.mu.Unlock()
		return ErrSchedulerStopped
	case s.started:
		s.mu.Unlock()
		return errAlreadyStarted
	}
	s.started = true
	cycleCtx, cancel := context.WithCancel(pkgsync.WithStopSignal(ctx, s.stopCh))
	s.cycleCancel = cancel
	s.mu.Unlock()

	defer close(s.done)
	defer cancel()

	s.loadStatus(ctx)
	slog.Info("Starting connector scheduler",
		"connector", s.name,
		"interval", s.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finish(ctx, "Connector stopped: "+ctx.Err().Error())
			return nil
		case <-s.stopCh:
			s.finish(ctx, "Connector stopped")
			return nil
		case <-timer.C:
		case <-s.refreshCh:
		}

		if !s.beginCycle() {
			s.finish(ctx, "Connector stopped")
			return nil
		}

		startedAt := time.Now()
		if cycleErr := s.runCycle(cycleCtx); cycleErr.Fatal() {
			s.finish(ctx, cycleErr.Message)
			return cycleErr
		}

		next, running := s.endCycle()
		if !running {
			s.finish(ctx, "Connector stopped")
			return nil
		}
		if next {
			timer.Reset(0)
		} else {
			timer.Reset(max(0, time.Until(startedAt.Add(s.interval))))
		}
	}
}

// Refresh requests a cycle now. If a cycle is running, one more cycle runs
// after it; further requests until then are coalesced into that one.
func (s *Scheduler) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		select {
		case s.refreshCh <- struct{}{}:
		default:
		}
	case StateRunning:
		if !s.pending {
			s.pending = true
			s.log.Record(ctx, audit.CodeRefreshCoalesced)
		}
	case StateStopping, StateStopped:
		slog.Debug("Ignoring refresh of stopping connector", "connector", s.name)
	}
}

// Stop moves the scheduler to Stopping and waits for the running cycle to
// finish. A readiness wait is interrupted at once. If ctx expires first, the
// cycle is cancelled so that it stops at the next action boundary, and Stop
// still waits for it before returning the context error.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	first := s.state != StateStopping
	s.state = StateStopping
	started := s.started
	s.started = true
	s.mu.Unlock()

	if first {
		slog.Info("Stopping connector scheduler", "connector", s.name)
		s.log.Record(ctx, audit.CodeConnectorStopping)
	}
	s.stopOnce.Do(func() { close(s.stopCh) })

	if !started {
		s.finish(ctx, "Connector stopped before it started")
		close(s.done)
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		cancel := s.cycleCancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		<-s.done
		return fmt.Errorf("connector %s did not stop gracefully: %w", s.name, ctx.Err())
	}
}

// Done is closed once the scheduler has stopped
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// beginCycle moves Idle to Running. It reports false when a stop was requested.
func (s *Scheduler) beginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return false
	}
	s.state = StateRunning
	// The cycle about to start serves any refresh queued while idle
	select {
	case <-s.refreshCh:
	default:
	}
	return true
}

// endCycle moves Running back to Idle. It reports whether a coalesced refresh
// is pending and whether the scheduler is still running.
func (s *Scheduler) endCycle() (next bool, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next = s.pending
	s.pending = false
	if s.state != StateRunning {
		return next, false
	}
	s.state = StateIdle
	return next, true
}

func (s *Scheduler) runCycle(ctx context.Context) *pkgsync.Error {
	startedAt := time.Now()
	var cycle int64
	s.updateStatus(ctx, func(cs *status.CycleStatus) bool {
		cs.Phase = status.CyclePhaseRunning
		cs.Message = "Cycle in progress"
		cs.CycleCount++
		cs.LastAttempt = &startedAt
		cs.ServiceVersion = versions.Version
		cycle = cs.CycleCount
		return true
	})
	s.log.Record(ctx, audit.CodeCycleStarted, cycle)
	slog.Info("Starting reconciliation cycle", "connector", s.name, "cycle", cycle)

	result, cycleErr := s.manager.PerformCycle(ctx)
	duration := time.Since(startedAt)
	s.metrics.RecordCycleDuration(ctx, s.name, duration, cycleErr == nil)

	if cycleErr != nil {
		s.log.Record(ctx, audit.CodeCycleFailed, cycle, cycleErr.Message)
		slog.Error("Reconciliation cycle failed",
			"connector", s.name,
			"cycle", cycle,
			"kind", cycleErr.Kind,
			"error", cycleErr.Message)
		s.updateStatus(ctx, func(cs *status.CycleStatus) bool {
			cs.Phase = status.CyclePhaseFailed
			cs.Message = cycleErr.Message
			cs.AttemptCount++
			return true
		})
		return cycleErr
	}

	summary := result.Summary
	s.log.Record(ctx, audit.CodeCycleCompleted, cycle,
		summary.Applied, summary.Skipped, summary.Failed, duration.Round(time.Millisecond))
	slog.Info("Reconciliation cycle completed",
		"connector", s.name,
		"cycle", cycle,
		"records", result.RecordCount,
		"applied", summary.Applied,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", duration)

	finishedAt := time.Now()
	s.updateStatus(ctx, func(cs *status.CycleStatus) bool {
		cs.Phase = status.CyclePhaseComplete
		cs.Message = fmt.Sprintf("Cycle completed: %d applied, %d skipped, %d failed",
			summary.Applied, summary.Skipped, summary.Failed)
		cs.AttemptCount = 0
		cs.LastSuccess = &finishedAt
		cs.LastDuration = duration.Round(time.Millisecond).String()
		cs.LastSummary = summarize(result)
		return true
	})
	return nil
}

// finish moves the scheduler to Stopped, exactly once
func (s *Scheduler) finish(ctx context.Context, message string) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.mu.Unlock()

	s.updateStatus(ctx, func(cs *status.CycleStatus) bool {
		if cs.Phase == status.CyclePhaseStopped && cs.Message == message {
			return false
		}
		cs.Phase = status.CyclePhaseStopped
		cs.Message = message
		return true
	})
	s.log.Record(ctx, audit.CodeConnectorStopped)
	slog.Info("Connector scheduler stopped", "connector", s.name, "reason", message)
}

// loadStatus continues from the persisted status, if any
func (s *Scheduler) loadStatus(ctx context.Context) {
	if s.statusSvc == nil {
		return
	}
	persisted, err := s.statusSvc.GetCycleStatus(ctx, s.name)
	if err != nil {
		if !errors.Is(err, state.ErrConnectorNotFound) {
			slog.Warn("Failed to load cycle status", "connector", s.name, "error", err)
		}
		return
	}
	persisted.Interval = s.interval.String()

	s.mu.Lock()
	s.status = persisted
	s.mu.Unlock()
}

// updateStatus applies updateFn to the in-memory status and persists the result.
// Persistence failures are logged; they never fail the cycle.
func (s *Scheduler) updateStatus(ctx context.Context, updateFn func(*status.CycleStatus) bool) {
	s.mu.Lock()
	changed := updateFn(s.status)
	snapshot := s.status.Clone()
	s.mu.Unlock()

	if !changed || s.statusSvc == nil {
		return
	}
	// Status writes complete even while the cycle is being cancelled
	ctx = context.WithoutCancel(ctx)
	if _, err := s.statusSvc.UpdateStatusAtomically(ctx, s.name, func(cs *status.CycleStatus) bool {
		*cs = *snapshot
		return true
	}); err != nil {
		if !errors.Is(err, state.ErrConnectorNotFound) {
			slog.Error("Failed to persist cycle status", "connector", s.name, "error", err)
			return
		}
		if err := s.statusSvc.UpdateCycleStatus(ctx, s.name, snapshot); err != nil {
			slog.Error("Failed to persist cycle status", "connector", s.name, "error", err)
		}
	}
}

func summarize(result *pkgsync.Result) *status.CycleSummary {
	summary := &status.CycleSummary{
		Records:  result.RecordCount,
		Elements: result.IndexSize,
		Applied:  result.Summary.Applied,
		Skipped:  result.Summary.Skipped,
		Failed:   result.Summary.Failed,
	}
	if len(result.Actions) > 0 {
		summary.Actions = make(map[string]int, len(result.Actions))
		for kind, count := range result.Actions {
			summary.Actions[string(kind)] = count
		}
	}
	return summary
}
