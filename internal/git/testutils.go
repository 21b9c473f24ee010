package git

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestingT is the part of testing.T used by the helpers below. GinkgoT() satisfies it too.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	TempDir() string
}

// CreateTestRepo creates a temporary repository on disk with files committed
// in a single commit and returns its path. The directory is removed when the
// test finishes.
func CreateTestRepo(t TestingT, files map[string]string) string {
	t.Helper()

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	CommitFiles(t, repo, repoDir, files)
	return repoDir
}

// CommitFiles writes files into the worktree at repoDir and commits them.
// A file with empty content is removed instead.
func CommitFiles(t TestingT, repo *git.Repository, repoDir string, files map[string]string) {
	t.Helper()

	workTree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	for filename, content := range files {
		filePath := filepath.Join(repoDir, filename)
		if content == "" {
			if _, err := workTree.Remove(filename); err != nil {
				t.Fatalf("Failed to remove file %s: %v", filename, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	_, err = workTree.Commit("Update test files", &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}
