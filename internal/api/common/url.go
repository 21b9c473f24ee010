package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-catalog-sync/internal/validators"
)

// ConnectorParam is the route parameter carrying a connector name
const ConnectorParam = "name"

// ConnectorName returns the percent-decoded connector name of a
// /v1/connectors/{name} route. Names that could never have been configured
// are rejected before any lookup.
func ConnectorName(r *http.Request) (string, error) {
	raw := chi.URLParam(r, ConnectorParam)
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in connector name %q", raw)
	}
	if name != strings.TrimSpace(name) {
		return "", fmt.Errorf("connector name %q cannot contain surrounding whitespace", name)
	}
	return validators.ValidateConnectorName(name)
}
