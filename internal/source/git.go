// Copyright 2024 The llpack Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qiniu/x/log"
	"golang.org/x/mod/semver"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/pkgs/gnu"
)

// Git provides the source of a project from the newest release tag of a
// git remote.
type Git struct {
	Name    string
	Remote  string
	WorkDir string

	// Cache holds one git repository per project. It defaults to
	// <WorkDir>/.llpack-git.
	Cache string

	git    string
	runner command.Runner

	tag      string
	resolved bool
}

var _ Provider = (*Git)(nil)

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// WithRepoCache sets the directory holding the git repositories.
func WithRepoCache(dir string) GitOption {
	return func(g *Git) {
		g.Cache = dir
	}
}

// NewGit returns a git provider for remote.
func NewGit(name, remote, workDir string, runner command.Runner, opts ...GitOption) *Git {
	g := &Git{
		Name:    name,
		Remote:  remote,
		WorkDir: workDir,
		Cache:   filepath.Join(workDir, ".llpack-git"),
		git:     "git",
		runner:  runner,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Git) ProjectName() string {
	return g.Name
}

func (g *Git) ProjectIdentifier() string {
	return identifier(g.Remote, g.Name)
}

// ProjectVersion returns the newest release tag without a leading "v".
func (g *Git) ProjectVersion(ctx context.Context) string {
	tag, err := g.latest(ctx)
	if err != nil {
		log.Warnf("Unable to determine version of %s: %v", g.Name, err)
		return ""
	}
	return strings.TrimPrefix(tag, "v")
}

// Tags returns all tags from the remote repository.
func (g *Git) Tags(ctx context.Context) ([]string, error) {
	output, err := g.output(ctx, "", "ls-remote", "--tags", "--refs", g.Remote)
	if err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	var tags []string
	for _, line := range strings.Split(output, "\n") {
		// format: <hash>\trefs/tags/<tag>
		parts := strings.Split(line, "\t")
		if len(parts) == 2 {
			tags = append(tags, strings.TrimPrefix(parts[1], "refs/tags/"))
		}
	}
	return tags, nil
}

func (g *Git) latest(ctx context.Context) (string, error) {
	if g.resolved {
		return g.tag, nil
	}
	tags, err := g.Tags(ctx)
	if err != nil {
		return "", err
	}
	tag := LatestTag(tags)
	if tag == "" {
		return "", fmt.Errorf("no tags in %s", g.Remote)
	}
	g.tag, g.resolved = tag, true
	return tag, nil
}

// LatestTag picks the newest release tag. Semantic version tags, with or
// without a "v" prefix, win over other tags; when there are none the tags
// are ordered like GNU sort -V.
func LatestTag(tags []string) string {
	var semverTags []string
	for _, tag := range tags {
		if semver.IsValid(canonical(tag)) {
			semverTags = append(semverTags, tag)
		}
	}
	if len(semverTags) > 0 {
		return slices.MaxFunc(semverTags, func(a, b string) int {
			return semver.Compare(canonical(a), canonical(b))
		})
	}
	return gnu.Latest(tags)
}

func canonical(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// Download fetches the newest tag into a shallow repository below the
// working directory and exports it as <name>-<version>.tar.gz.
func (g *Git) Download(ctx context.Context) (string, error) {
	tag, err := g.latest(ctx)
	if err != nil {
		return "", err
	}
	version := strings.TrimPrefix(tag, "v")
	dst, err := filepath.Abs(filepath.Join(g.WorkDir, fmt.Sprintf("%s-%s.tar.gz", g.Name, version)))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	repo := filepath.Join(g.Cache, g.Name)
	if err := os.MkdirAll(repo, 0o755); err != nil {
		return "", err
	}
	if err := g.sync(ctx, repo, "refs/tags/"+tag); err != nil {
		return "", err
	}

	log.Infof("Exporting %s %s", g.Remote, tag)
	prefix := fmt.Sprintf("%s-%s/", g.Name, version)
	if err := g.run(ctx, repo, "archive", "--format=tar.gz", "--prefix="+prefix, "-o", dst, "FETCH_HEAD"); err != nil {
		return "", fmt.Errorf("archive %s: %w", tag, err)
	}
	return dst, nil
}

// sync ensures repo exists and has ref fetched as FETCH_HEAD.
func (g *Git) sync(ctx context.Context, repo, ref string) error {
	if _, err := os.Stat(filepath.Join(repo, ".git")); os.IsNotExist(err) {
		if err := g.run(ctx, repo, "init", "--quiet"); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	if err := g.run(ctx, repo, "fetch", "--depth", "1", g.Remote, ref); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (g *Git) Create(ctx context.Context) (string, error) {
	file, err := g.Download(ctx)
	if err != nil {
		return "", err
	}
	return create(file, g.Name, g.ProjectVersion(ctx))
}

func (g *Git) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	return g.runner.Output(ctx, &command.Cmd{
		Name: g.git,
		Args: args,
		Dir:  dir,
		Env:  map[string]string{"GIT_TERMINAL_PROMPT": "0"},
	})
}
