package sources

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"path"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/git"
)

// gitEnumerator yields one record per entry of a directory in a Git repository.
// The repository is cloned into memory on every enumeration and released afterwards.
type gitEnumerator struct {
	gitClient git.Client
	cfg       *config.GitConfig
}

// NewGitEnumerator creates a Git enumerator
func NewGitEnumerator(cfg *config.GitConfig, client git.Client) (Enumerator, error) {
	if cfg == nil || cfg.Repository == "" {
		return nil, fmt.Errorf("git repository URL cannot be empty")
	}
	if client == nil {
		client = git.NewDefaultGitClient()
	}
	return &gitEnumerator{gitClient: client, cfg: cfg}, nil
}

func (*gitEnumerator) Type() string {
	return config.SourceTypeGit
}

func (g *gitEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	records, err := g.fetchEntries(ctx)
	if err != nil {
		return failed(err)
	}
	return fromSlice(ctx, records)
}

func (g *gitEnumerator) fetchEntries(ctx context.Context) ([]catalog.ExternalRecord, error) {
	cloneConfig := &git.CloneConfig{
		URL:    g.cfg.Repository,
		Branch: g.cfg.Branch,
		Tag:    g.cfg.Tag,
		Commit: g.cfg.Commit,
	}

	if g.cfg.Auth != nil && g.cfg.Auth.Username != "" {
		password, err := g.cfg.Auth.GetPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to get git password: %w", err)
		}
		cloneConfig.Auth = &git.AuthConfig{
			Username: g.cfg.Auth.Username,
			Password: password,
		}
	}

	startTime := time.Now()
	slog.Debug("Starting git clone",
		"repository", cloneConfig.URL,
		"branch", cloneConfig.Branch,
		"tag", cloneConfig.Tag,
		"commit", cloneConfig.Commit)

	repoInfo, err := g.gitClient.Clone(ctx, cloneConfig)
	if err != nil {
		slog.Error("Git clone failed",
			"error", err,
			"repository", cloneConfig.URL,
			"duration", time.Since(startTime).String())
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	slog.Debug("Git clone completed",
		"repository", cloneConfig.URL,
		"duration", time.Since(startTime).String(),
		"branch", repoInfo.Branch,
		"commit_sha", repoInfo.Commit)
	commit := repoInfo.Commit

	defer func() {
		if cleanupErr := g.gitClient.Cleanup(ctx, repoInfo); cleanupErr != nil {
			slog.Error("Failed to cleanup repository", "error", cleanupErr)
		}
	}()

	entries, err := g.gitClient.ListEntries(repoInfo, g.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q in repository: %w", g.cfg.Path, err)
	}

	records := make([]catalog.ExternalRecord, 0, len(entries))
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "directory"
		}
		records = append(records, catalog.ExternalRecord{
			Name:        e.Name,
			Fingerprint: e.Hash,
			Present:     true,
			Attributes: map[string]string{
				"repository": g.cfg.Repository,
				"path":       path.Join(g.cfg.Path, e.Name),
				"kind":       kind,
				"commit":     commit,
			},
		})
	}
	return records, nil
}
