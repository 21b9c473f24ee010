package sources

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
)

const (
	// DefaultNameField is the gjson path of an item's name
	DefaultNameField = "name"

	// DefaultMaxRetries bounds retries of transient API failures
	DefaultMaxRetries = 3
)

// apiEnumerator fetches a JSON document and yields one record per item of an array in it
type apiEnumerator struct {
	httpClient httpclient.Client
	cfg        *config.APIConfig
	backOff    func() backoff.BackOff
}

// APIOption configures an API enumerator
type APIOption func(*apiEnumerator)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client httpclient.Client) APIOption {
	return func(a *apiEnumerator) {
		a.httpClient = client
	}
}

// WithBackOff overrides the retry schedule
func WithBackOff(newBackOff func() backoff.BackOff) APIOption {
	return func(a *apiEnumerator) {
		a.backOff = newBackOff
	}
}

// NewAPIEnumerator creates an enumerator for an HTTP JSON endpoint
func NewAPIEnumerator(cfg *config.APIConfig, opts ...APIOption) (Enumerator, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("api endpoint cannot be empty")
	}

	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid api timeout: %w", err)
		}
		timeout = d
	}

	a := &apiEnumerator{
		httpClient: httpclient.NewDefaultClient(timeout),
		cfg:        cfg,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (*apiEnumerator) Type() string {
	return config.SourceTypeAPI
}

func (a *apiEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	data, err := a.fetch(ctx)
	if err != nil {
		return failed(err)
	}
	records, err := a.parse(data)
	if err != nil {
		return failed(err)
	}
	return fromSlice(ctx, records)
}

// fetch retries transient failures with exponential backoff
func (a *apiEnumerator) fetch(ctx context.Context) ([]byte, error) {
	maxRetries := a.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	// #nosec G115 -- maxRetries is positive
	maxTries := uint(maxRetries) + 1

	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		data, err := a.httpClient.Get(ctx, a.cfg.Endpoint)
		if err != nil && !httpclient.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	},
		backoff.WithBackOff(a.backOff()),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "API request failed, retrying",
				"endpoint", a.cfg.Endpoint,
				"retry_in", next.String(),
				"error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", a.cfg.Endpoint, err)
	}
	return data, nil
}

func (a *apiEnumerator) parse(data []byte) ([]catalog.ExternalRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("response from %s is not valid JSON", a.cfg.Endpoint)
	}

	items := gjson.ParseBytes(data)
	if a.cfg.ItemsPath != "" {
		items = items.Get(a.cfg.ItemsPath)
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("items at %q are not an array", a.cfg.ItemsPath)
	}

	nameField := a.cfg.NameField
	if nameField == "" {
		nameField = DefaultNameField
	}

	var (
		records  []catalog.ExternalRecord
		parseErr error
	)
	items.ForEach(func(key, item gjson.Result) bool {
		name := item.Get(nameField).String()
		if name == "" {
			parseErr = fmt.Errorf("item %d has no %q field", key.Int(), nameField)
			return false
		}

		var attrs map[string]string
		if len(a.cfg.AttributeFields) > 0 {
			attrs = make(map[string]string, len(a.cfg.AttributeFields))
			for attr, path := range a.cfg.AttributeFields {
				if v := item.Get(path); v.Exists() {
					attrs[attr] = v.String()
				}
			}
		}

		fingerprint := hashOf([]byte(item.Raw))
		if a.cfg.FingerprintField != "" {
			v := item.Get(a.cfg.FingerprintField)
			if !v.Exists() {
				parseErr = fmt.Errorf("item %q has no %q field", name, a.cfg.FingerprintField)
				return false
			}
			fingerprint = v.String()
		}

		records = append(records, catalog.ExternalRecord{
			Name:        name,
			Fingerprint: fingerprint,
			Present:     true,
			Attributes:  attrs,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}
