// Package git clones repositories into memory for git-backed sources
package git

import (
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// AuthConfig contains HTTP basic credentials for a clone
type AuthConfig struct {
	Username string
	Password string
}

// CloneConfig contains configuration for cloning a repository
type CloneConfig struct {
	// URL is the repository URL to clone
	URL string

	// Branch is the specific branch to clone (optional)
	Branch string

	// Tag is the specific tag to clone (optional)
	Tag string

	// Commit is the specific commit to check out (optional)
	Commit string

	// Auth holds credentials for private repositories (optional)
	Auth *AuthConfig
}

// RepositoryInfo contains information about a cloned repository
type RepositoryInfo struct {
	// Repository is the go-git repository instance
	Repository *git.Repository

	// Branch is the checked out branch, empty for tags and detached commits
	Branch string

	// Commit is the HEAD commit hash
	Commit string

	// RemoteURL is the remote repository URL
	RemoteURL string

	// Released by Cleanup
	storerFilesystem billy.Filesystem
	objectCache      cache.Object
	tree             *object.Tree
}

// Entry is one item of a directory tree at HEAD
type Entry struct {
	// Name is the base name of the entry
	Name string

	// Hash is the git object hash, which changes whenever the content changes
	Hash string

	// IsDir is true for sub-trees
	IsDir bool
}
