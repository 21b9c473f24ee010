package audit

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity classifies an audit event
type Severity string

const (
	// SeverityInfo records normal progress
	SeverityInfo Severity = "INFO"
	// SeverityWarning records a degraded but recoverable condition
	SeverityWarning Severity = "WARNING"
	// SeverityError records a condition that needs operator attention
	SeverityError Severity = "ERROR"
	// SeverityException records an unexpected error returned by a collaborator
	SeverityException Severity = "EXCEPTION"
)

// Code is the symbolic name of an audit message
type Code string

// Audit message codes emitted by the catalog sync engine
const (
	CodeConnectorConfigured        Code = "CONNECTOR_CONFIGURED"
	CodeTypesMissing               Code = "TYPES_MISSING"
	CodeTypesRetry                 Code = "TYPES_RETRY"
	CodeTypesAcquired              Code = "TYPES_ACQUIRED"
	CodeTypesWaitInterrupted       Code = "TYPES_WAIT_INTERRUPTED"
	CodeSchemaUnavailable          Code = "SCHEMA_UNAVAILABLE"
	CodeResourcesRetrieved         Code = "RESOURCES_RETRIEVED"
	CodeUnableToRetrieveResources  Code = "UNABLE_TO_RETRIEVE_RESOURCES"
	CodeMissingTemplate            Code = "MISSING_TEMPLATE"
	CodeElementCreated             Code = "ELEMENT_CREATED"
	CodeElementCreatedFromTemplate Code = "ELEMENT_CREATED_FROM_TEMPLATE"
	CodeElementUpdated             Code = "ELEMENT_UPDATED"
	CodeElementArchived            Code = "ELEMENT_ARCHIVED"
	CodeElementDeleted             Code = "ELEMENT_DELETED"
	CodeElementSkipped             Code = "ELEMENT_SKIPPED"
	CodeElementApplyFailed         Code = "ELEMENT_APPLY_FAILED"
	CodeCycleStarted               Code = "CYCLE_STARTED"
	CodeCycleCompleted             Code = "CYCLE_COMPLETED"
	CodeCycleFailed                Code = "CYCLE_FAILED"
	CodeRefreshCoalesced           Code = "REFRESH_COALESCED"
	CodeConnectorStopping          Code = "CONNECTOR_STOPPING"
	CodeConnectorStopped           Code = "CONNECTOR_STOPPED"
)

// MessageDefinition describes one entry of the audit message catalog.
// Template placeholders are written {0}, {1}, ... and filled from the event parameters.
type MessageDefinition struct {
	ID       string
	Severity Severity
	Template string
}

var messages = map[Code]MessageDefinition{
	CodeConnectorConfigured: {"CATSYNC-0001", SeverityInfo,
		"The {0} connector is configured to catalog {1} resources from a {2} source every {3}"},
	CodeTypesMissing: {"CATSYNC-0002", SeverityWarning,
		"The {0} connector is waiting for metadata types {1} to be defined (attempt {2})"},
	CodeTypesRetry: {"CATSYNC-0003", SeverityInfo,
		"The {0} connector is checking for metadata types again after waiting {1} (attempt {2})"},
	CodeTypesAcquired: {"CATSYNC-0004", SeverityInfo,
		"The {0} connector found all required metadata types: {1}"},
	CodeTypesWaitInterrupted: {"CATSYNC-0005", SeverityWarning,
		"The {0} connector was interrupted while waiting for metadata types {1}"},
	CodeSchemaUnavailable: {"CATSYNC-0006", SeverityError,
		"The {0} connector stopped waiting for metadata types {1} after {2} attempts; the connector must be restarted once they are defined"},
	CodeResourcesRetrieved: {"CATSYNC-0007", SeverityInfo,
		"The {0} connector has retrieved {1} resources from its {2} source"},
	CodeUnableToRetrieveResources: {"CATSYNC-0008", SeverityException,
		"The {0} connector received an unexpected error when retrieving resources from its {1} source. The error message was {2}"},
	CodeMissingTemplate: {"CATSYNC-0009", SeverityWarning,
		"The {0} connector is unable to retrieve the template with qualified name {1}; new elements are created without it"},
	CodeElementCreated: {"CATSYNC-0010", SeverityInfo,
		"The {0} connector created {1} ({2}) for a new external resource"},
	CodeElementCreatedFromTemplate: {"CATSYNC-0011", SeverityInfo,
		"The {0} connector created {1} ({2}) for a new external resource using template {3} ({4})"},
	CodeElementUpdated: {"CATSYNC-0012", SeverityInfo,
		"The {0} connector has updated {1} ({2}) because the external resource changed"},
	CodeElementArchived: {"CATSYNC-0013", SeverityInfo,
		"The {0} connector has archived {1} ({2}) because the external resource no longer exists"},
	CodeElementDeleted: {"CATSYNC-0014", SeverityInfo,
		"The {0} connector has deleted {1} ({2}) because the external resource no longer exists"},
	CodeElementSkipped: {"CATSYNC-0015", SeverityInfo,
		"The {0} connector skipped the {1} of {2}: {3}"},
	CodeElementApplyFailed: {"CATSYNC-0016", SeverityException,
		"An unexpected error was returned to the {0} connector when it tried the {1} of {2}. The error message was {3}"},
	CodeCycleStarted: {"CATSYNC-0017", SeverityInfo,
		"The {0} connector started reconciliation cycle {1}"},
	CodeCycleCompleted: {"CATSYNC-0018", SeverityInfo,
		"The {0} connector completed reconciliation cycle {1}: {2} applied, {3} skipped, {4} failed in {5}"},
	CodeCycleFailed: {"CATSYNC-0019", SeverityError,
		"The {0} connector failed reconciliation cycle {1}: {2}"},
	CodeRefreshCoalesced: {"CATSYNC-0020", SeverityInfo,
		"The {0} connector received a refresh request while a cycle was running; one more cycle will follow"},
	CodeConnectorStopping: {"CATSYNC-0021", SeverityInfo,
		"The {0} connector has stopped its monitoring and is shutting down"},
	CodeConnectorStopped: {"CATSYNC-0022", SeverityInfo,
		"The {0} connector has shut down"},
}

// Definition returns the catalog entry for code
func Definition(code Code) (MessageDefinition, bool) {
	def, ok := messages[code]
	return def, ok
}

// Codes returns every code in the message catalog
func Codes() []Code {
	codes := make([]Code, 0, len(messages))
	for code := range messages {
		codes = append(codes, code)
	}
	return codes
}

// Render fills the template placeholders with params. Placeholders without a
// matching parameter are left in place.
func (d MessageDefinition) Render(params ...string) string {
	if len(params) == 0 {
		return d.Template
	}
	pairs := make([]string, 0, 2*len(params))
	for i, p := range params {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", p)
	}
	return strings.NewReplacer(pairs...).Replace(d.Template)
}

func stringify(params []any) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = fmt.Sprint(p)
	}
	return out
}
