package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// OutcomeKind is the result of applying one action
type OutcomeKind string

const (
	// OutcomeApplied means the store was changed
	OutcomeApplied OutcomeKind = "Applied"
	// OutcomeSkipped means nothing was done, see Outcome.Reason
	OutcomeSkipped OutcomeKind = "Skipped"
	// OutcomeFailed means the store rejected the change, see Outcome.Err
	OutcomeFailed OutcomeKind = "Failed"
)

// Skip reasons
const (
	ReasonNoDrift         = "no drift"
	ReasonElementVanished = "element no longer exists"
	ReasonShutdown        = "shutdown"
)

// Outcome is the result of applying a single action
type Outcome struct {
	Action Action
	Kind   OutcomeKind
	Reason string
	Err    error

	// Element is the element returned by the store for applied creates, updates and archives
	Element *catalog.CatalogElement
}

// Summary aggregates the outcomes of one cycle.
// Applied+Skipped+Failed always equals len(Outcomes).
type Summary struct {
	Applied  int
	Skipped  int
	Failed   int
	ByAction map[ActionKind]int
	Outcomes []Outcome
}

// Total returns the number of actions the summary covers
func (s *Summary) Total() int {
	return s.Applied + s.Skipped + s.Failed
}

func (s *Summary) add(outcome Outcome) {
	switch outcome.Kind {
	case OutcomeApplied:
		s.Applied++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	s.ByAction[outcome.Action.Kind]++
	s.Outcomes = append(s.Outcomes, outcome)
}

// ApplyError describes a failed action. It matches ErrElementApply and the store error.
type ApplyError struct {
	Kind          ActionKind
	QualifiedName string
	Err           error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.QualifiedName, e.Err)
}

func (e *ApplyError) Unwrap() []error {
	return []error{ErrElementApply, e.Err}
}

// Executor applies reconciliation actions to the store
type Executor struct {
	store        store.Store
	log          *audit.Log
	metrics      *telemetry.SyncMetrics
	tracer       trace.Tracer
	resourceType string
	concurrency  int
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithConcurrency lets up to n actions of the same phase run at once
func WithConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		e.concurrency = n
	}
}

// WithExecutorMetrics records every outcome on the actions counter
func WithExecutorMetrics(metrics *telemetry.SyncMetrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = metrics
	}
}

// WithExecutorTracer traces every store mutation
func WithExecutorTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// NewExecutor creates an executor writing elements of resourceType
func NewExecutor(st store.Store, log *audit.Log, resourceType string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:        st,
		log:          log,
		resourceType: resourceType,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyAll applies every action and never stops on a failed one.
//
// Removals all complete before any create or update starts. Within a phase,
// actions run concurrently when the executor allows it; the outcomes keep the
// order of actions either way.
func (e *Executor) ApplyAll(ctx context.Context, actions []Action) Summary {
	outcomes := make([]Outcome, len(actions))

	split := 0
	for split < len(actions) && actions[split].Kind.IsRemoval() {
		split++
	}
	e.applyPhase(ctx, actions[:split], outcomes[:split])
	e.applyPhase(ctx, actions[split:], outcomes[split:])

	summary := Summary{
		ByAction: make(map[ActionKind]int),
		Outcomes: make([]Outcome, 0, len(actions)),
	}
	for _, outcome := range outcomes {
		summary.add(outcome)
	}
	return summary
}

func (e *Executor) applyPhase(ctx context.Context, actions []Action, outcomes []Outcome) {
	if e.concurrency <= 1 || len(actions) < 2 {
		for i := range actions {
			outcomes[i] = e.Apply(ctx, actions[i])
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range actions {
		g.Go(func() error {
			outcomes[i] = e.Apply(ctx, actions[i])
			return nil
		})
	}
	_ = g.Wait()
}

// Apply applies a single action and records exactly one audit event for it,
// unless the action is a NoOp.
//
// Cancellation of ctx is only observed before the store is called. An in-flight
// store call is never aborted.
func (e *Executor) Apply(ctx context.Context, action Action) Outcome {
	var outcome Outcome
	switch {
	case action.Kind == ActionNoOp:
		outcome = Outcome{Action: action, Kind: OutcomeSkipped, Reason: ReasonNoDrift}
	case ctx.Err() != nil:
		outcome = Outcome{Action: action, Kind: OutcomeSkipped, Reason: ReasonShutdown}
	default:
		outcome = e.mutate(context.WithoutCancel(ctx), action)
	}

	e.metrics.RecordAction(ctx, e.log.Connector(), string(action.Kind), string(outcome.Kind))
	e.audit(ctx, outcome)
	return outcome
}

func (e *Executor) mutate(ctx context.Context, action Action) Outcome {
	ctx, span := otel.StartSpan(ctx, e.tracer, "Executor.Apply",
		otel.ActionAttributes(e.log.Connector(), string(action.Kind), action.QualifiedName))
	defer span.End()

	element, err := e.call(ctx, action)
	switch {
	case err == nil:
		return Outcome{Action: action, Kind: OutcomeApplied, Element: element}
	case errors.Is(err, store.ErrNotFound) && action.Element != nil:
		return Outcome{Action: action, Kind: OutcomeSkipped, Reason: ReasonElementVanished}
	default:
		otel.RecordError(span, err)
		slog.WarnContext(ctx, "Failed to apply catalog action",
			"connector", e.log.Connector(),
			"action", action.Kind,
			"qualified_name", action.QualifiedName,
			"error", err)
		return Outcome{
			Action: action,
			Kind:   OutcomeFailed,
			Err:    &ApplyError{Kind: action.Kind, QualifiedName: action.QualifiedName, Err: err},
		}
	}
}

func (e *Executor) call(ctx context.Context, action Action) (*catalog.CatalogElement, error) {
	switch action.Kind {
	case ActionCreateRaw:
		return e.store.CreateElement(ctx, &store.CreateElementRequest{
			QualifiedName: action.QualifiedName,
			ExternalID:    action.Record.Name,
			ResourceType:  e.resourceType,
			Fingerprint:   action.Record.Fingerprint,
			Attributes:    action.Record.Attributes,
		})
	case ActionCreateFromTemplate:
		return e.store.CreateElement(ctx, &store.CreateElementRequest{
			QualifiedName:         action.QualifiedName,
			ExternalID:            action.Record.Name,
			ResourceType:          e.resourceType,
			Fingerprint:           action.Record.Fingerprint,
			Attributes:            catalog.MergeAttributes(action.Template.Attributes, action.Record.Attributes),
			TemplateQualifiedName: action.Template.QualifiedName,
		})
	case ActionUpdate:
		attributes, err := e.updateAttributes(ctx, action)
		if err != nil {
			return nil, err
		}
		return e.store.UpdateElement(ctx, action.Element.GUID, &store.UpdateElementRequest{
			Fingerprint:     action.Record.Fingerprint,
			Attributes:      attributes,
			ExpectedVersion: action.Element.Version,
		})
	case ActionArchive:
		return e.store.ArchiveElement(ctx, action.Element.GUID)
	case ActionDelete:
		return action.Element, e.store.DeleteElement(ctx, action.Element.GUID)
	default:
		return nil, fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// updateAttributes rebuilds the attributes of an element created from a template
// so the template-derived keys survive a fingerprint change. When the template
// has since been removed, the element's current attributes are used as the base.
func (e *Executor) updateAttributes(ctx context.Context, action Action) (map[string]string, error) {
	lineage := action.Element.TemplateQualifiedName
	if lineage == "" {
		return action.Record.Attributes, nil
	}
	template, err := e.store.GetTemplate(ctx, lineage)
	switch {
	case err == nil:
		return catalog.MergeAttributes(template.Attributes, action.Record.Attributes), nil
	case errors.Is(err, store.ErrNotFound):
		return catalog.MergeAttributes(action.Element.Attributes, action.Record.Attributes), nil
	default:
		return nil, fmt.Errorf("failed to resolve template %s: %w", lineage, err)
	}
}

func (e *Executor) audit(ctx context.Context, outcome Outcome) {
	action := outcome.Action
	switch outcome.Kind {
	case OutcomeSkipped:
		if action.Kind == ActionNoOp {
			return
		}
		e.log.Record(ctx, audit.CodeElementSkipped, action.Kind, action.QualifiedName, outcome.Reason)
	case OutcomeFailed:
		cause := outcome.Err
		var applyErr *ApplyError
		if errors.As(outcome.Err, &applyErr) {
			cause = applyErr.Err
		}
		e.log.Record(ctx, audit.CodeElementApplyFailed, action.Kind, action.QualifiedName, cause)
	case OutcomeApplied:
		guid := ""
		if outcome.Element != nil {
			guid = outcome.Element.GUID
		}
		switch action.Kind {
		case ActionCreateRaw:
			e.log.Record(ctx, audit.CodeElementCreated, action.QualifiedName, guid)
		case ActionCreateFromTemplate:
			e.log.Record(ctx, audit.CodeElementCreatedFromTemplate,
				action.QualifiedName, guid, action.Template.QualifiedName, action.Template.GUID)
		case ActionUpdate:
			e.log.Record(ctx, audit.CodeElementUpdated, action.QualifiedName, guid)
		case ActionArchive:
			e.log.Record(ctx, audit.CodeElementArchived, action.QualifiedName, guid)
		case ActionDelete:
			e.log.Record(ctx, audit.CodeElementDeleted, action.QualifiedName, guid)
		}
	}
}
