package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Limits applied to each in-memory clone
const (
	maxCloneFiles = 10 * 1000
	maxCloneBytes = 100 * 1024 * 1024
)

var errNoRepository = errors.New("repository is nil")

// Client clones repositories and reads their HEAD tree
type Client interface {
	// Clone clones a repository into memory and resolves its HEAD tree
	Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error)

	// ListEntries lists the entries of a directory at HEAD, sorted by name
	ListEntries(repoInfo *RepositoryInfo, dir string) ([]Entry, error)

	// GetFileContent returns the content of a file at HEAD
	GetFileContent(repoInfo *RepositoryInfo, path string) ([]byte, error)

	// Cleanup releases the in-memory repository
	Cleanup(ctx context.Context, repoInfo *RepositoryInfo) error
}

type memoryClient struct{}

// NewDefaultGitClient creates a Client that clones into bounded in-memory filesystems
func NewDefaultGitClient() Client {
	return &memoryClient{}
}

func cloneOptions(config *CloneConfig) *git.CloneOptions {
	opts := &git.CloneOptions{URL: config.URL}

	if config.Auth != nil && config.Auth.Username != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: config.Auth.Username,
			Password: config.Auth.Password,
		}
	}

	// A pinned commit may be anywhere in history, so only ref clones are shallow
	if config.Commit != "" {
		return opts
	}
	opts.Depth = 1
	switch {
	case config.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(config.Branch)
		opts.SingleBranch = true
	case config.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(config.Tag)
		opts.SingleBranch = true
	}
	return opts
}

// Clone clones config.URL into memory and checks out the requested revision
func (c *memoryClient) Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error) {
	if config == nil || config.URL == "" {
		return nil, errors.New("repository URL is required")
	}

	storerFs := NewLimitedFs(memfs.New(), maxCloneFiles, maxCloneBytes)
	objectCache := cache.NewObjectLRUDefault()
	info := &RepositoryInfo{
		RemoteURL:        config.URL,
		storerFilesystem: storerFs,
		objectCache:      objectCache,
	}

	repo, err := git.CloneContext(ctx,
		filesystem.NewStorage(storerFs, objectCache),
		NewLimitedFs(memfs.New(), maxCloneFiles, maxCloneBytes),
		cloneOptions(config))
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}
	info.Repository = repo

	if config.Commit != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			_ = c.Cleanup(ctx, info)
			return nil, fmt.Errorf("failed to get worktree: %w", err)
		}
		if err := worktree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(config.Commit)}); err != nil {
			_ = c.Cleanup(ctx, info)
			return nil, fmt.Errorf("failed to checkout commit %s: %w", config.Commit, err)
		}
	}

	if err := resolveHead(info); err != nil {
		_ = c.Cleanup(ctx, info)
		return nil, err
	}
	return info, nil
}

// resolveHead records the HEAD commit, branch and tree on info
func resolveHead(info *RepositoryInfo) error {
	ref, err := info.Repository.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}

	commit, err := info.Repository.CommitObject(ref.Hash())
	if err != nil {
		return fmt.Errorf("failed to get commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}

	info.Commit = commit.Hash.String()
	info.tree = tree
	return nil
}

// ListEntries lists the entries of dir in the HEAD tree. The root is "" or "/".
func (*memoryClient) ListEntries(repoInfo *RepositoryInfo, dir string) ([]Entry, error) {
	if repoInfo == nil || repoInfo.tree == nil {
		return nil, errNoRepository
	}

	tree := repoInfo.tree
	if dir = strings.TrimPrefix(path.Clean("/"+dir), "/"); dir != "" {
		var err error
		if tree, err = tree.Tree(dir); err != nil {
			return nil, fmt.Errorf("failed to get directory %s: %w", dir, err)
		}
	}

	entries := make([]Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, Entry{
			Name:  e.Name,
			Hash:  e.Hash.String(),
			IsDir: e.Mode == filemode.Dir,
		})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return entries, nil
}

// GetFileContent returns the content of a file in the HEAD tree
func (*memoryClient) GetFileContent(repoInfo *RepositoryInfo, filePath string) ([]byte, error) {
	if repoInfo == nil || repoInfo.tree == nil {
		return nil, errNoRepository
	}

	file, err := repoInfo.tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", filePath, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return []byte(content), nil
}

// Cleanup drops every reference to the clone so the memory can be reclaimed
func (*memoryClient) Cleanup(_ context.Context, repoInfo *RepositoryInfo) error {
	if repoInfo == nil || repoInfo.Repository == nil {
		return errNoRepository
	}

	if repoInfo.objectCache != nil {
		repoInfo.objectCache.Clear()
	}
	if worktree, err := repoInfo.Repository.Worktree(); err == nil && worktree.Filesystem != nil {
		_ = util.RemoveAll(worktree.Filesystem, "/")
	}
	if repoInfo.storerFilesystem != nil {
		_ = util.RemoveAll(repoInfo.storerFilesystem, "/")
	}

	repoInfo.objectCache = nil
	repoInfo.storerFilesystem = nil
	repoInfo.tree = nil
	repoInfo.Repository = nil

	slog.Debug("Released in-memory clone", "repository", repoInfo.RemoteURL)
	runtime.GC()
	return nil
}
