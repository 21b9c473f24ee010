// Package coordinator schedules the reconciliation cycles of catalog connectors.
//
// Each connector gets a Scheduler, a small state machine on top of
// sync.Manager:
//
//	Idle --(deadline or Refresh)--> Running --(cycle done)--> Idle
//	any  --(Stop)--> Stopping --(running cycle done)--> Stopped
//	Running --(metadata types never appeared)--> Stopped
//
// The next deadline is the start of the previous cycle plus the connector's
// interval; a cycle that overruns its interval is followed by the next one
// immediately. Refresh requests received while a cycle runs collapse into a
// single follow-up cycle.
//
// Stopping interrupts a readiness wait at once but lets a running cycle
// finish. When the context given to Stop expires first, the cycle is
// cancelled and the executor skips the actions it has not started yet.
//
// The Coordinator runs one Scheduler per configured connector, initializes
// and persists their cycle status through a state.ConnectorStateService, and
// serves the status and refresh operations of the HTTP API.
//
// # Usage Example
//
//	coord, err := coordinator.New(managers, stateService,
//	    coordinator.WithAuditSink(sink),
//	    coordinator.WithSyncMetrics(syncMetrics))
//	if err != nil {
//	    return err
//	}
//	go func() { errCh <- coord.Start(ctx) }()
//
//	// ... run server ...
//
//	_ = coord.Stop(shutdownCtx)
package coordinator
