package sources

import (
	"fmt"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/git"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
)

// EnumeratorFactory creates enumerators from source configuration
type EnumeratorFactory interface {
	// CreateEnumerator creates the enumerator for the given source
	CreateEnumerator(source *config.SourceConfig) (Enumerator, error)
}

// defaultEnumeratorFactory is the default implementation of EnumeratorFactory
type defaultEnumeratorFactory struct {
	gitClient  git.Client
	httpClient httpclient.Client
}

var _ EnumeratorFactory = (*defaultEnumeratorFactory)(nil)

// FactoryOption configures the default factory
type FactoryOption func(*defaultEnumeratorFactory)

// WithGitClient sets the Git client used by git sources
func WithGitClient(client git.Client) FactoryOption {
	return func(f *defaultEnumeratorFactory) {
		f.gitClient = client
	}
}

// WithAPIClient sets the HTTP client used by api sources
func WithAPIClient(client httpclient.Client) FactoryOption {
	return func(f *defaultEnumeratorFactory) {
		f.httpClient = client
	}
}

// NewEnumeratorFactory creates a new enumerator factory
func NewEnumeratorFactory(opts ...FactoryOption) EnumeratorFactory {
	f := &defaultEnumeratorFactory{gitClient: git.NewDefaultGitClient()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateEnumerator creates an enumerator for the given source
func (f *defaultEnumeratorFactory) CreateEnumerator(source *config.SourceConfig) (Enumerator, error) {
	if source == nil {
		return nil, fmt.Errorf("source configuration cannot be nil")
	}

	switch source.GetType() {
	case config.SourceTypeDirectory:
		return NewDirectoryEnumerator(source.Directory)
	case config.SourceTypeGit:
		return NewGitEnumerator(source.Git, f.gitClient)
	case config.SourceTypeAPI:
		var opts []APIOption
		if f.httpClient != nil {
			opts = append(opts, WithHTTPClient(f.httpClient))
		}
		return NewAPIEnumerator(source.API, opts...)
	case config.SourceTypeFile:
		return NewFileEnumerator(source.File)
	case config.SourceTypeStatic:
		if source.Static == nil {
			return nil, fmt.Errorf("static configuration is required")
		}
		return newStaticEnumeratorFromConfig(source.Static), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", source.GetType())
	}
}
