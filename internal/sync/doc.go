// Package sync implements the reconciliation cycle of a catalog connector.
//
// A cycle runs the following steps for one connector:
//
//   - Gate: blocks until the metadata types the connector needs exist in the store
//   - Enumerate: drains the connector's sources.Enumerator into a record list
//   - Template: resolves the optional creation template, degrading to raw creates when missing
//   - Index: loads every element under the connector's qualified name prefix
//   - Differ: classifies each qualified name into a single Action
//   - Executor: applies the actions, isolating failures per element
//
// # Action Ordering
//
// Diff returns removals (Delete, Archive) first, then creates and updates, then
// NoOps, each group sorted by qualified name. The Executor finishes every
// removal before the first create starts, also when it runs actions concurrently.
//
// # Errors
//
// PerformCycle returns a *Error whose Kind classifies the failure. Only
// ErrorKindSchemaUnavailable is fatal (Error.Fatal); enumeration and index
// failures abort the cycle and are retried on the next tick. Element failures
// never abort a cycle and are reported in Summary.Failed.
//
// # Coordinator Package
//
// The sync/coordinator subpackage schedules cycles: it polls on the connector's
// interval, coalesces refresh requests and persists the status of each cycle.
package sync
