// Package integration provides integration tests for the ToolHive catalog sync service.
// These tests run the complete application against real sources (file, API, Git)
// and check both the catalog store and the operations API.
package integration
