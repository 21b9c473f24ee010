// Package validators provides validation functions for connector and catalog names.
package validators

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxConnectorNameLength = 63
	maxSegmentLength       = 200
)

// Connector names appear in status file paths, API URLs and metric labels
var connectorNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// ValidateConnectorName validates a connector name.
// Returns the validated name (trimmed) and an error if validation fails.
//
// Format requirements:
// - Starts and ends with an alphanumeric character
// - Contains only alphanumerics, dots, underscores and hyphens
// - At most 63 characters
//
// Examples of valid names: kafka-topics, landing_folders, pg.tables
// Examples of invalid names: ../status, -topics, topics/prod
func ValidateConnectorName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", fmt.Errorf("connector name cannot be empty")
	}
	if len(name) > maxConnectorNameLength {
		return "", fmt.Errorf("connector name must be at most %d characters long", maxConnectorNameLength)
	}
	if !connectorNamePattern.MatchString(name) {
		return "", fmt.Errorf(
			"connector name '%s' must start and end with an alphanumeric character and contain only alphanumerics, '.', '_' or '-'",
			name)
	}
	return name, nil
}

// IsValidConnectorName reports whether name is a valid connector name
func IsValidConnectorName(name string) bool {
	_, err := ValidateConnectorName(name)
	return err == nil && name == strings.TrimSpace(name)
}

// ValidateNameSegment validates one segment of a qualified name, such as a
// namespace or a resource type. kind names the segment in error messages.
func ValidateNameSegment(kind, segment string) error {
	if segment == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if len(segment) > maxSegmentLength {
		return fmt.Errorf("%s must be at most %d characters long", kind, maxSegmentLength)
	}
	for _, r := range segment {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%s '%s' must not contain whitespace or control characters", kind, segment)
		}
	}
	return nil
}
