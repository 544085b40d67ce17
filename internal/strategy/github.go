// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// githubBase is the GitHub web origin, overridden in tests.
var githubBase = "https://github.com"

// archiveBranches are tried in order by the archive strategy.
var archiveBranches = []string{"main", "master"}

var githubRepoPattern = regexp.MustCompile(`(?i)github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)

// GitHubRepo extracts owner and repository name from a GitHub URL.
func GitHubRepo(rawURL string) (owner, repo string, ok bool) {
	m := githubRepoPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", false
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return "", "", false
	}
	return m[1], repo, true
}

type githubArchive struct {
	fetch *httputil.FetchContext
}

// NewGitHubArchive returns the strategy that downloads a branch archive of a
// GitHub repository.
func NewGitHubArchive(f *httputil.FetchContext) Strategy {
	return &githubArchive{fetch: f}
}

func (s *githubArchive) Name() string { return NameGitHub }

func (s *githubArchive) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	owner, repo, ok := GitHubRepo(ref.URL)
	if !ok {
		return Outcome{}, notApplicable("%q is not a GitHub repository URL", ref.URL)
	}

	hdr := s.fetch.BrowserHeaders(githubBase + "/" + owner + "/" + repo)
	hdr.Set("Accept", "*/*")
	for _, branch := range archiveBranches {
		archiveURL := fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip", githubBase, owner, repo, branch)
		entry, err := s.fetch.Download(ctx, archiveURL, hdr, dir, fmt.Sprintf("%s-%s.zip", repo, branch))
		if err == nil {
			return Outcome{Files: []types.FileEntry{entry}}, nil
		}
		var se *httputil.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			s.fetch.Log.Debug("branch archive not found",
				logging.String("repo", owner+"/"+repo), logging.String("branch", branch))
			continue
		}
		return Outcome{}, err
	}
	return Outcome{}, Logical(fmt.Errorf("no %s archive for %s/%s", strings.Join(archiveBranches, " or "), owner, repo))
}

type gitClone struct {
	fetch *httputil.FetchContext
}

// NewGitClone returns the strategy that makes a shallow clone of a GitHub
// repository, for repositories whose default branch is neither main nor
// master.
func NewGitClone(f *httputil.FetchContext) Strategy {
	return &gitClone{fetch: f}
}

func (s *gitClone) Name() string { return NameGitClone }

func (s *gitClone) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	owner, repo, ok := GitHubRepo(ref.URL)
	if !ok {
		return Outcome{}, notApplicable("%q is not a GitHub repository URL", ref.URL)
	}

	dest := filepath.Join(dir, repo)
	if err := os.RemoveAll(dest); err != nil {
		return Outcome{}, fmt.Errorf("clearing %s: %w", dest, err)
	}

	opts := &git.CloneOptions{
		URL:          fmt.Sprintf("%s/%s/%s.git", githubBase, owner, repo),
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if tok := s.fetch.Token("github-token"); tok != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: tok}
	}
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		os.RemoveAll(dest)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Outcome{}, err
		}
		return Outcome{}, Logical(fmt.Errorf("cloning %s/%s: %w", owner, repo, err))
	}

	files, err := manifest(dir, func(rel string, d fs.DirEntry) bool {
		return d.IsDir() && d.Name() == ".git"
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Files: files}, nil
}

// manifest hashes every regular file under dir. skip prunes entries; a
// skipped directory is not descended into.
func manifest(dir string, skip func(rel string, d fs.DirEntry) bool) ([]types.FileEntry, error) {
	var files []types.FileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		if skip != nil && skip(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		entry, err := hashFile(dir, rel)
		if err != nil {
			return err
		}
		files = append(files, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return files, nil
}
