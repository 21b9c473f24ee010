package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// APIItem is one item served by the mock inventory API
type APIItem struct {
	Name  string            `json:"name"`
	ETag  string            `json:"etag"`
	Owner string            `json:"owner,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// MockInventoryAPI serves a JSON inventory document at /inventory.
// Items and failures can be changed while the server runs.
type MockInventoryAPI struct {
	*httptest.Server

	mu       sync.Mutex
	items    []APIItem
	status   int
	requests int
}

// NewMockInventoryAPI starts a mock inventory API serving items
func NewMockInventoryAPI(items ...APIItem) *MockInventoryAPI {
	m := &MockInventoryAPI{items: items, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", m.serveInventory)
	m.Server = httptest.NewServer(mux)
	return m
}

func (m *MockInventoryAPI) serveInventory(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if m.status != http.StatusOK {
		http.Error(w, http.StatusText(m.status), m.status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"kind": "inventory",
		"data": map[string]any{"items": m.items},
	})
}

// Endpoint returns the URL of the inventory document
func (m *MockInventoryAPI) Endpoint() string {
	return m.URL + "/inventory"
}

// SetItems replaces the served items
func (m *MockInventoryAPI) SetItems(items ...APIItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

// SetStatus makes every following request fail with status, or succeed with http.StatusOK
func (m *MockInventoryAPI) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// Requests returns how many inventory requests were served
func (m *MockInventoryAPI) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}
