package helpers

import (
	"os"
	"path/filepath"

	"github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// TestResourceType is the resource type of every test connector. Connectors use
// their name as namespace, so each one owns a distinct prefix.
const TestResourceType = "Dataset"

// NewConnector returns a connector with test friendly readiness settings.
// It waits for the TestResourceType metadata type.
func NewConnector(name string, source config.SourceConfig) config.ConnectorConfig {
	return config.ConnectorConfig{
		Name:         name,
		Namespace:    name,
		ResourceType: TestResourceType,
		Source:       source,
		SyncPolicy:   &config.SyncPolicyConfig{Interval: "1h"},
		Readiness: &config.ReadinessConfig{
			RequiredTypes: []string{TestResourceType},
			RetryDelay:    "100ms",
		},
	}
}

// WriteConfigYAML writes a configuration file using sqlite storage under dir
func WriteConfigYAML(dir string, connectors ...config.ConnectorConfig) string {
	logEvents := true
	cfg := config.Config{
		ServiceName: "catalog-sync-integration",
		DataDir:     filepath.Join(dir, "data"),
		Connectors:  connectors,
		Storage: &config.StorageConfig{
			Type:   config.StorageTypeSQLite,
			SQLite: &config.SQLiteConfig{Path: filepath.Join(dir, "data", "catalog.db")},
		},
		Audit: &config.AuditConfig{
			File:      filepath.Join(dir, "audit.jsonl"),
			LogEvents: &logEvents,
		},
	}

	data, err := yaml.Marshal(&cfg)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, data, 0600)).To(gomega.Succeed())
	return path
}

// WriteManifest writes a file source manifest
func WriteManifest(path string, resources ...config.ResourceConfig) {
	data, err := yaml.Marshal(map[string]any{"resources": resources})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	gomega.Expect(os.WriteFile(path, data, 0600)).To(gomega.Succeed())
}
