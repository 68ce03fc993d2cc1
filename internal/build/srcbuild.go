package build

import (
	"context"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/buildsys/autotools"
	"github.com/goplus/llpack/pkgs/buildsys/setuppy"
)

// sourceBuild compiles the project in its extracted source directory
// without packaging it.
type sourceBuild struct {
	*base
}

func newSourceBuild(b *base) (Helper, error) {
	return &sourceBuild{base: b}, nil
}

func (s *sourceBuild) Build(ctx context.Context, src source.Provider) error {
	archive, err := src.Download(ctx)
	if err != nil {
		log.Errorf("Download of: %s failed: %v", src.ProjectName(), err)
		return err
	}
	dir, err := src.Create(ctx)
	if err != nil {
		log.Errorf("Extraction of source package: %s failed: %v", archive, err)
		return err
	}
	log.Infof("Building source of: %s", archive)

	l := newBuildLog(dir)
	if err := s.applyPatches(ctx, dir, l, false); err != nil {
		return err
	}

	var bs buildsys.BuildSystem
	var args []string
	if s.def.BuildSystem == buildsys.SetupPy {
		bs = setuppy.New(s.runner, s.python, dir)
	} else {
		bs = autotools.New(s.runner, dir)
		if args, err = s.def.ConfigureArgs(false); err != nil {
			return err
		}
	}
	l.attach(bs)
	if err := bs.Configure(ctx, args...); err != nil {
		return stepFailed(err)
	}
	if err := bs.Build(ctx); err != nil {
		return stepFailed(err)
	}
	return nil
}

// Clean leaves the source tree alone.
func (s *sourceBuild) Clean(ctx context.Context, src source.Provider) error {
	return nil
}
