// Package sources enumerates the resources of external systems.
//
// An Enumerator produces the current set of ExternalRecords of one external
// system. Each call to Enumerate starts a fresh, finite enumeration; nothing
// is carried over between calls, so a failed enumeration can simply be
// retried on the next cycle.
//
// Implementations:
//   - directoryEnumerator: entries of a local directory, optionally filtered by glob
//   - gitEnumerator: entries of a directory in a Git repository cloned into memory
//   - apiEnumerator: items of a JSON document fetched over HTTP, extracted with gjson paths
//   - fileEnumerator: resources listed in a YAML manifest
//   - staticEnumerator: resources listed inline in the configuration
//
// The factory builds the right enumerator from a connector's source
// configuration. Directory sources can also be watched with fsnotify so that
// changes trigger an immediate refresh.
package sources
