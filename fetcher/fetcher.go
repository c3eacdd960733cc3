/*
   Copyright 2025 The Excore Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package fetcher implements apis.Fetcher, the optional collaborator
// that materializes a remote registry source (a git repository or a
// plain HTTP(S) artifact) onto local disk before it is registered (spec
// §1, §7 error taxonomy).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"excore.dev/excore/apis"
)

// allowedGitHosts lists the git hosts excore trusts to fetch from. Empty
// means "no restriction".
type fetcher struct {
	allowedGitHosts map[string]bool
	httpClient      *http.Client
	logger          *zap.Logger
}

// Option configures a Fetcher built by New.
type Option func(*fetcher)

// WithAllowedGitHosts restricts FetchGit to the given hostnames.
func WithAllowedGitHosts(hosts ...string) Option {
	return func(f *fetcher) {
		for _, h := range hosts {
			f.allowedGitHosts[strings.ToLower(h)] = true
		}
	}
}

// WithHTTPClient overrides the client used by FetchHTTP.
func WithHTTPClient(c *http.Client) Option {
	return func(f *fetcher) { f.httpClient = c }
}

// WithLogger attaches a logger; a nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(f *fetcher) { f.logger = logger }
}

// New builds an apis.Fetcher.
func New(opts ...Option) apis.Fetcher {
	f := &fetcher{
		allowedGitHosts: make(map[string]bool),
		httpClient:      http.DefaultClient,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchGit clones repo into destDir if it does not already hold a git
// work tree, otherwise fetches and checks out ref against the existing
// clone. ref may be a branch, tag, or commit SHA; an empty ref keeps the
// repository's default branch.
func (f *fetcher) FetchGit(ctx context.Context, repo, ref, destDir string) error {
	if repo == "" {
		return fmt.Errorf("%w: empty repository reference", apis.ErrInvalidRepo)
	}
	if err := f.checkGitHost(repo); err != nil {
		return err
	}

	f.logger.Info("excore(fetcher): fetching git repository", zap.String("repo", repo), zap.String("ref", ref), zap.String("dest", destDir))

	r, err := git.PlainOpen(destDir)
	switch err {
	case nil:
		if fetchErr := f.pull(ctx, r); fetchErr != nil {
			return fetchErr
		}
	case git.ErrRepositoryNotExists:
		r, err = git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{URL: repo})
		if err != nil {
			return fmt.Errorf("%w: cloning %q: %v", apis.ErrGitPull, repo, err)
		}
	default:
		return fmt.Errorf("%w: opening %q: %v", apis.ErrGitPull, destDir, err)
	}

	if ref == "" {
		return nil
	}
	return checkoutRef(r, ref)
}

func (f *fetcher) pull(ctx context.Context, r *git.Repository) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("%w: opening worktree: %v", apis.ErrGitPull, err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("%w: %v", apis.ErrGitPull, err)
	}
	return nil
}

func checkoutRef(r *git.Repository, ref string) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("%w: opening worktree: %v", apis.ErrGitCheckout, err)
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
	for _, name := range candidates {
		if _, err := r.Reference(name, true); err == nil {
			if err := wt.Checkout(&git.CheckoutOptions{Branch: name}); err != nil {
				return fmt.Errorf("%w: checking out %q: %v", apis.ErrGitCheckout, ref, err)
			}
			return nil
		}
	}

	hash, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("%w: resolving revision %q: %v", apis.ErrGitCheckout, ref, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("%w: checking out %q: %v", apis.ErrGitCheckout, ref, err)
	}
	return nil
}

func (f *fetcher) checkGitHost(repo string) error {
	if len(f.allowedGitHosts) == 0 {
		return nil
	}
	u, err := url.Parse(repo)
	if err != nil || u.Host == "" {
		// scp-like syntax (git@host:path) has no scheme; extract the
		// host portion by hand.
		if at := strings.Index(repo, "@"); at >= 0 {
			rest := repo[at+1:]
			if colon := strings.Index(rest, ":"); colon >= 0 {
				if f.allowedGitHosts[strings.ToLower(rest[:colon])] {
					return nil
				}
			}
		}
		return fmt.Errorf("%w: cannot determine host of %q", apis.ErrInvalidGitHost, repo)
	}
	if !f.allowedGitHosts[strings.ToLower(u.Host)] {
		return fmt.Errorf("%w: %q is not an allowed git host", apis.ErrInvalidGitHost, u.Host)
	}
	return nil
}

// FetchHTTP downloads url into destPath, creating parent directories as
// needed. Only http and https are supported.
func (f *fetcher) FetchHTTP(ctx context.Context, rawURL, destPath string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", apis.ErrInvalidProtocol, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", apis.ErrInvalidProtocol, u.Scheme)
	}

	f.logger.Info("excore(fetcher): downloading", zap.String("url", rawURL), zap.String("dest", destPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", apis.ErrHTTPDownload, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apis.ErrHTTPDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", apis.ErrHTTPDownload, rawURL, resp.StatusCode)
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %q: %v", apis.ErrHTTPDownload, dir, err)
		}
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", apis.ErrHTTPDownload, destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("%w: writing %q: %v", apis.ErrHTTPDownload, destPath, err)
	}
	return nil
}
