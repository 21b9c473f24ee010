package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// DefaultRetryDelay is the wait between two readiness checks
const DefaultRetryDelay = time.Second

// errStopRequested is the cause reported when a stop signal ends the wait
var errStopRequested = errors.New("connector stop requested")

type stopSignalKey struct{}

// WithStopSignal returns a context carrying stop. Closing stop interrupts a
// readiness wait the same way cancelling the context does, while the rest of
// the cycle keeps running with the context.
func WithStopSignal(ctx context.Context, stop <-chan struct{}) context.Context {
	return context.WithValue(ctx, stopSignalKey{}, stop)
}

func stopSignal(ctx context.Context) <-chan struct{} {
	stop, _ := ctx.Value(stopSignalKey{}).(<-chan struct{})
	return stop
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// Gate blocks a connector until the metadata types it depends on exist.
// Once the types are found the gate stays open for the lifetime of the connector.
type Gate struct {
	store       store.Store
	log         *audit.Log
	metrics     *telemetry.SyncMetrics
	retryDelay  time.Duration
	maxAttempts int

	ready atomic.Bool
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithRetryDelay sets the wait between checks
func WithRetryDelay(delay time.Duration) GateOption {
	return func(g *Gate) {
		if delay > 0 {
			g.retryDelay = delay
		}
	}
}

// WithMaxAttempts bounds the number of retried checks. 0 retries forever.
func WithMaxAttempts(attempts int) GateOption {
	return func(g *Gate) {
		if attempts >= 0 {
			g.maxAttempts = attempts
		}
	}
}

// WithGateMetrics records failed checks on the readiness attempts counter
func WithGateMetrics(metrics *telemetry.SyncMetrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

// NewGate creates a readiness gate backed by the given store
func NewGate(st store.Store, log *audit.Log, opts ...GateOption) *Gate {
	g := &Gate{
		store:      st,
		log:        log,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ready reports whether the gate has already seen every required type
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// AwaitReady returns nil once every required type exists in the store.
//
// A failed check is retried after the retry delay. When maxAttempts retries
// have been spent, the next failed check returns a *SchemaUnavailableError.
// Cancelling ctx, or closing the stop signal attached with WithStopSignal,
// interrupts the wait and returns an error wrapping ErrAborted.
func (g *Gate) AwaitReady(ctx context.Context, requiredTypes []string) error {
	if len(requiredTypes) == 0 || g.ready.Load() {
		return nil
	}

	typeList := strings.Join(requiredTypes, ", ")
	stop := stopSignal(ctx)
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return g.interrupted(ctx, typeList, err)
		}
		if stopped(stop) {
			return g.interrupted(ctx, typeList, errStopRequested)
		}

		missing, err := g.store.MissingTypes(ctx, requiredTypes)
		if err != nil {
			if ctx.Err() != nil {
				return g.interrupted(ctx, typeList, ctx.Err())
			}
			slog.WarnContext(ctx, "Metadata type check failed",
				"connector", g.log.Connector(),
				"error", err)
			missing = requiredTypes
		}

		if err == nil && len(missing) == 0 {
			g.ready.Store(true)
			g.log.Record(ctx, audit.CodeTypesAcquired, typeList)
			return nil
		}

		if g.maxAttempts > 0 && retries >= g.maxAttempts {
			g.log.Record(ctx, audit.CodeSchemaUnavailable, typeList, retries+1)
			return &SchemaUnavailableError{
				Connector:    g.log.Connector(),
				MissingTypes: missing,
				Attempts:     retries + 1,
			}
		}

		retries++
		g.metrics.RecordReadinessAttempt(ctx, g.log.Connector())
		g.log.Record(ctx, audit.CodeTypesMissing, strings.Join(missing, ", "), retries)

		timer := time.NewTimer(g.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return g.interrupted(ctx, typeList, ctx.Err())
		case <-stop:
			timer.Stop()
			return g.interrupted(ctx, typeList, errStopRequested)
		case <-timer.C:
		}

		g.log.Record(ctx, audit.CodeTypesRetry, g.retryDelay, retries)
	}
}

func (g *Gate) interrupted(ctx context.Context, typeList string, cause error) error {
	g.log.Record(ctx, audit.CodeTypesWaitInterrupted, typeList)
	return fmt.Errorf("%w: waiting for metadata types: %w", ErrAborted, cause)
}
