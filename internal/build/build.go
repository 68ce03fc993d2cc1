package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/env"
	"github.com/goplus/llpack/internal/project"
	"github.com/goplus/llpack/internal/source"
)

// Summary lists the project names by outcome.
type Summary struct {
	Built   []string
	Skipped []string
	Failed  []string
}

// OK reports whether no project failed.
func (s *Summary) OK() bool {
	return len(s.Failed) == 0
}

// Builder runs the packaging lifecycle of one target over many projects,
// one project at a time.
type Builder struct {
	target    Target
	toolsPath string
	opts      []Option
	options   options

	// newSource is replaced in tests.
	newSource func(def *project.Definition) (source.Provider, error)
}

// NewBuilder returns a builder for target. opts are passed on to every
// helper.
func NewBuilder(target Target, toolsPath string, opts ...Option) *Builder {
	b := &Builder{
		target:    target,
		toolsPath: toolsPath,
		opts:      opts,
		options:   defaultOptions(),
	}
	for _, opt := range opts {
		opt(&b.options)
	}
	b.newSource = b.provider
	return b
}

// provider returns the source of def. Git repositories live in the cache
// directory.
func (b *Builder) provider(def *project.Definition) (source.Provider, error) {
	if def.GitURL == "" {
		return source.New(def, b.options.workDir, b.options.runner)
	}
	dir := b.options.cacheDir
	if dir == "" {
		userDir, err := env.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("%s: git cache: %w", def.Name, err)
		}
		dir = filepath.Join(userDir, "git")
	}
	return source.New(def, b.options.workDir, b.options.runner, source.WithRepoCache(dir))
}

// helper returns the helper of def, or nil when def is not built.
func (b *Builder) helper(def *project.Definition) (Helper, error) {
	h, err := New(def, b.target, b.toolsPath, b.opts...)
	if err != nil {
		return nil, err
	}
	if h == nil {
		log.Warnf("Unsupported build system: %s for target: %s of project: %s", def.BuildSystem, b.target, def.Name)
	}
	return h, nil
}

// Build builds every project whose package is missing and cleans the
// packages of older versions. Failures are recorded and the next project
// is built. The returned error is only set when the run itself could not
// continue, e.g. when ctx is canceled.
func (b *Builder) Build(ctx context.Context, defs []*project.Definition) (*Summary, error) {
	history, err := LoadHistory(b.options.workDir)
	if err != nil {
		return nil, fmt.Errorf("load build history: %w", err)
	}

	summary := &Summary{}
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome := b.buildOne(ctx, def, history)
		switch outcome {
		case built:
			summary.Built = append(summary.Built, def.Name)
		case skipped:
			summary.Skipped = append(summary.Skipped, def.Name)
		default:
			summary.Failed = append(summary.Failed, def.Name)
		}
	}
	if len(summary.Built) > 0 {
		if err := history.Save(b.options.workDir); err != nil {
			return summary, fmt.Errorf("save build history: %w", err)
		}
	}
	return summary, nil
}

type outcome int

const (
	failed outcome = iota
	skipped
	built
)

func (b *Builder) buildOne(ctx context.Context, def *project.Definition, history *History) outcome {
	h, err := b.helper(def)
	if err != nil {
		log.Errorf("Unable to build: %s: %v", def.Name, err)
		return failed
	}
	if h == nil {
		return skipped
	}

	if missing := h.CheckBuildDependencies(ctx); len(missing) > 0 {
		log.Errorf("Missing build dependencies of: %s: %s", def.Name, strings.Join(missing, ", "))
		return skipped
	}

	src, err := b.newSource(def)
	if err != nil {
		log.Errorf("Unable to build: %s: %v", def.Name, err)
		return failed
	}
	if !h.CheckBuildRequired(ctx, src) {
		log.Infof("No build required for: %s", def.Name)
		return skipped
	}

	log.Infof("Building: %s", def.Name)
	if err := h.Build(ctx, src); err != nil {
		log.Errorf("Failed building: %s: %v", def.Name, err)
		return failed
	}
	if err := h.Clean(ctx, src); err != nil {
		log.Warnf("Unable to clean: %s: %v", def.Name, err)
	}

	history.add(&HistoryEntry{
		Project:   def.Name,
		Version:   src.ProjectVersion(ctx),
		Target:    b.target,
		BuildTime: b.options.now(),
	})
	return built
}

// Clean removes the packages of older versions of every project.
func (b *Builder) Clean(ctx context.Context, defs []*project.Definition) error {
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := b.helper(def)
		if err != nil {
			return err
		}
		if h == nil {
			continue
		}
		src, err := b.newSource(def)
		if err != nil {
			return err
		}
		if err := h.Clean(ctx, src); err != nil {
			return fmt.Errorf("clean %s: %w", def.Name, err)
		}
	}
	return nil
}

// MissingDependencies returns the unmet build dependencies per project.
// Projects without a helper for the target are left out.
func (b *Builder) MissingDependencies(ctx context.Context, defs []*project.Definition) (map[string][]string, error) {
	missing := make(map[string][]string)
	for _, def := range defs {
		h, err := b.helper(def)
		if err != nil {
			return nil, err
		}
		if h == nil {
			continue
		}
		missing[def.Name] = h.CheckBuildDependencies(ctx)
	}
	return missing, nil
}
