// Package helpers provides utilities for the catalog sync integration tests.
package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/onsi/gomega"

	catalogapp "github.com/stacklok/toolhive-catalog-sync/internal/app"
	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
)

// ServerTestHelper manages the catalog sync application lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *catalogapp.CatalogApp
}

// NewServerTestHelper creates a new server test helper listening on a free local port
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	address := freeAddress()
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func freeAddress() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().String()
}

// StartServer builds the application from the configuration file and starts it
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := catalogapp.NewCatalogApp(s.ctx,
		catalogapp.WithConfig(cfg),
		catalogapp.WithAddress(s.address),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()
	return nil
}

// StopServer gracefully stops the application
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the server to be ready to accept requests
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/health")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Store returns the catalog store of the running application
func (s *ServerTestHelper) Store() store.Store {
	return s.app.GetStore()
}

// Elements returns the elements under the namespace and resource type, keyed by external name
func (s *ServerTestHelper) Elements(namespace, resourceType string) map[string]*catalog.CatalogElement {
	elements, err := s.Store().ListElements(s.ctx, catalog.QualifiedNamePrefix(namespace, resourceType))
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	byName := make(map[string]*catalog.CatalogElement, len(elements))
	for _, e := range elements {
		byName[e.ExternalID] = e
	}
	return byName
}

// GetHealth makes a GET request to /health
func (s *ServerTestHelper) GetHealth() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/health")
}

// GetReadiness makes a GET request to /readiness
func (s *ServerTestHelper) GetReadiness() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/readiness")
}

// GetConnectors makes a GET request to /v1/connectors
func (s *ServerTestHelper) GetConnectors() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/v1/connectors")
}

// GetConnector makes a GET request to /v1/connectors/{name}
func (s *ServerTestHelper) GetConnector(name string) (*http.Response, error) {
	return s.httpClient.Get(fmt.Sprintf("%s/v1/connectors/%s", s.baseURL, name))
}

// Refresh makes a POST request to /v1/connectors/{name}/refresh
func (s *ServerTestHelper) Refresh(name string) (*http.Response, error) {
	return s.httpClient.Post(fmt.Sprintf("%s/v1/connectors/%s/refresh", s.baseURL, name), "application/json", nil)
}

// ConnectorStatus fetches and decodes the status of one connector
func (s *ServerTestHelper) ConnectorStatus(name string) (*coordinator.ConnectorStatus, error) {
	resp, err := s.GetConnector(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var status coordinator.ConnectorStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CycleCount returns how many cycles the connector has started, or -1 on error
func (s *ServerTestHelper) CycleCount(name string) int64 {
	status, err := s.ConnectorStatus(name)
	if err != nil || status.Cycle == nil {
		return -1
	}
	return status.Cycle.CycleCount
}
