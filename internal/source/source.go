// Copyright 2024 The llpack Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source fetches and unpacks the upstream source of a project.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/project"
)

// ErrUnsupportedArchive is returned for archives of an unknown format.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// Provider fetches the source of one project.
type Provider interface {
	// ProjectName returns the upstream project name.
	ProjectName() string

	// ProjectIdentifier returns a reverse-DNS identifier such as
	// com.github.libyal.libewf.
	ProjectIdentifier() string

	// ProjectVersion returns the version of the source, or "" when it
	// cannot be determined.
	ProjectVersion(ctx context.Context) string

	// Download fetches the source archive into the working directory and
	// returns its path. An archive already present is reused.
	Download(ctx context.Context) (string, error)

	// Create extracts the downloaded archive and returns the source
	// directory path. An existing directory is reused.
	Create(ctx context.Context) (string, error)
}

// New returns the provider for def: a Git provider when GitURL is set,
// otherwise an archive provider for DownloadURL. opts apply to the Git
// provider only.
func New(def *project.Definition, workDir string, runner command.Runner, opts ...GitOption) (Provider, error) {
	switch {
	case def.GitURL != "":
		return NewGit(def.Name, def.GitURL, workDir, runner, opts...), nil
	case def.DownloadURL != "":
		return NewArchive(def.Name, def.DownloadURL, workDir), nil
	}
	return nil, fmt.Errorf("%s: no download_url or git_url", def.Name)
}

// identifier derives a reverse-DNS identifier from the host and owner of
// rawURL, e.g. https://github.com/libyal/libewf yields com.github.libyal.
func identifier(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "org.llpack." + name
	}
	labels := strings.Split(strings.TrimPrefix(u.Hostname(), "www."), ".")
	parts := make([]string, 0, len(labels)+2)
	for i := len(labels) - 1; i >= 0; i-- {
		parts = append(parts, labels[i])
	}
	if owner, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/"); owner != "" && owner != path.Base(u.Path) {
		parts = append(parts, owner)
	}
	return strings.Join(append(parts, name), ".")
}
