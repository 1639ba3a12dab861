// Package testutil builds throwaway git remotes for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Remote is a bare repository plus a seed clone used to push commits and tags into it.
type Remote struct {
	URL     string
	Branch  string
	seedDir string
	seed    *git.Repository
}

func signature() *object.Signature {
	return &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
}

// NewRemote creates a bare remote whose branch holds one initial commit.
func NewRemote(t *testing.T, branch string) *Remote {
	t.Helper()
	root := t.TempDir()
	bareDir := filepath.Join(root, "remote.git")
	initOpts := git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)}
	_, err := git.PlainInitWithOptions(bareDir, &git.PlainInitOptions{Bare: true, InitOptions: initOpts})
	require.NoError(t, err)
	seedDir := filepath.Join(root, "seed")
	seed, err := git.PlainInitWithOptions(seedDir, &git.PlainInitOptions{InitOptions: initOpts})
	require.NoError(t, err)
	_, err = seed.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{bareDir}})
	require.NoError(t, err)
	r := &Remote{URL: bareDir, Branch: branch, seedDir: seedDir, seed: seed}
	r.Commit(t, "README.md", "# content\n")
	return r
}

// Commit writes file in the seed clone, commits it and pushes the branch.
func (r *Remote) Commit(t *testing.T, file, content string) string {
	t.Helper()
	path := filepath.Join(r.seedDir, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	w, err := r.seed.Worktree()
	require.NoError(t, err)
	_, err = w.Add(file)
	require.NoError(t, err)
	hash, err := w.Commit("update "+file, &git.CommitOptions{Author: signature()})
	require.NoError(t, err)
	spec := config.RefSpec("refs/heads/" + r.Branch + ":refs/heads/" + r.Branch)
	require.NoError(t, r.seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []config.RefSpec{spec}}))
	return hash.String()
}

// Tag creates an annotated tag at the seed HEAD and pushes it.
func (r *Remote) Tag(t *testing.T, name string) {
	t.Helper()
	head, err := r.seed.Head()
	require.NoError(t, err)
	_, err = r.seed.CreateTag(name, head.Hash(), &git.CreateTagOptions{Message: "Release " + name, Tagger: signature()})
	require.NoError(t, err)
	spec := config.RefSpec("refs/tags/" + name + ":refs/tags/" + name)
	require.NoError(t, r.seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []config.RefSpec{spec}}))
}

// Clone clones the remote into dir with all tags.
func (r *Remote) Clone(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:           r.URL,
		ReferenceName: plumbing.NewBranchReferenceName(r.Branch),
		SingleBranch:  true,
		Tags:          git.AllTags,
	})
	require.NoError(t, err)
	return repo
}

// BranchExists reports whether branch exists on the remote.
func (r *Remote) BranchExists(t *testing.T, branch string) bool {
	t.Helper()
	bare, err := git.PlainOpen(r.URL)
	require.NoError(t, err)
	_, err = bare.Reference(plumbing.NewBranchReferenceName(branch), false)
	return err == nil
}

// HasTag reports whether tag exists on the remote.
func (r *Remote) HasTag(t *testing.T, tag string) bool {
	t.Helper()
	bare, err := git.PlainOpen(r.URL)
	require.NoError(t, err)
	_, err = bare.Tag(tag)
	return err == nil
}

// BranchHead returns the commit hash branch points at on the remote.
func (r *Remote) BranchHead(t *testing.T, branch string) string {
	t.Helper()
	bare, err := git.PlainOpen(r.URL)
	require.NoError(t, err)
	ref, err := bare.Reference(plumbing.NewBranchReferenceName(branch), false)
	require.NoError(t, err)
	return ref.Hash().String()
}
