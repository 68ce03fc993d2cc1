package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Archive extensions, longest first so ".tar.gz" wins over ".gz".
var archiveExts = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tbz2", ".txz", ".zip"}

// archiveExt returns the archive extension of name, or "".
func archiveExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// entry is one member of an archive, independent of the archive format.
type entry struct {
	Name     string
	Mode     fs.FileMode
	ModTime  time.Time
	Linkname string
}

// walk calls fn for every member of the archive at file. For regular files
// r yields the content.
func walk(file string, fn func(e entry, r io.Reader) error) error {
	switch archiveExt(file) {
	case ".zip":
		return walkZip(file, fn)
	case "":
		return fmt.Errorf("%w: %s", ErrUnsupportedArchive, filepath.Base(file))
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch archiveExt(file) {
	case ".tar.gz", ".tgz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		defer gz.Close()
		r = gz
	case ".tar.bz2", ".tbz2":
		r = bzip2.NewReader(f)
	case ".tar.xz", ".txz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		r = xr
	}
	return walkTar(file, tar.NewReader(r), fn)
}

func walkTar(file string, tr *tar.Reader, fn func(e entry, r io.Reader) error) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		e := entry{Name: hdr.Name, Mode: hdr.FileInfo().Mode(), ModTime: hdr.ModTime, Linkname: hdr.Linkname}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink:
		default:
			// Hard links, devices and fifos carry no source.
			continue
		}
		if err := fn(e, tr); err != nil {
			return err
		}
	}
}

func walkZip(file string, fn func(e entry, r io.Reader) error) error {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		e := entry{Name: zf.Name, Mode: zf.Mode(), ModTime: zf.Modified}
		if e.Mode.IsDir() {
			if err := fn(e, nil); err != nil {
				return err
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("%s: %s: %w", file, zf.Name, err)
		}
		if e.Mode&fs.ModeSymlink != 0 {
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			e.Linkname = string(target)
			if err := fn(e, nil); err != nil {
				return err
			}
			continue
		}
		err = fn(e, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// safeJoin resolves an archive member name below dir and rejects names that
// would escape it.
func safeJoin(dir, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || slices.Contains(strings.Split(slashed, "/"), "..") {
		return "", fmt.Errorf("archive member %q escapes the extraction directory", name)
	}
	clean := path.Clean(slashed)
	if clean == "." {
		return dir, nil
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), nil
}

// extract unpacks file into dir.
func extract(file, dir string) error {
	return walk(file, func(e entry, r io.Reader) error {
		target, err := safeJoin(dir, e.Name)
		if err != nil {
			return err
		}
		switch {
		case e.Mode.IsDir():
			return os.MkdirAll(target, 0o755)
		case e.Mode&fs.ModeSymlink != 0:
			if filepath.IsAbs(e.Linkname) {
				return fmt.Errorf("archive member %q links outside the extraction directory", e.Name)
			}
			if _, err := safeJoin(dir, path.Join(path.Dir(e.Name), e.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return os.Symlink(e.Linkname, target)
		case r == nil:
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, e.Mode.Perm()|0o200)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// extractTo unpacks file so that its content ends up in target. An archive
// with a single top-level directory has that directory renamed to target;
// any other layout is extracted into target as is.
func extractTo(file, target string) error {
	staging, err := os.MkdirTemp(filepath.Dir(target), ".llpack-extract-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := extract(file, staging); err != nil {
		return err
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return os.Rename(filepath.Join(staging, entries[0].Name()), target)
	}
	return os.Rename(staging, target)
}

// RepackTarGz writes the archive at src as a gzip compressed tarball at dst.
// The dpkg tools only accept .orig.tar.gz upstream tarballs.
func RepackTarGz(src, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	err = walk(src, func(e entry, r io.Reader) error {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    int64(e.Mode.Perm()),
			ModTime: e.ModTime,
		}
		switch {
		case e.Mode.IsDir():
			hdr.Typeflag = tar.TypeDir
			if !strings.HasSuffix(hdr.Name, "/") {
				hdr.Name += "/"
			}
			return tw.WriteHeader(hdr)
		case e.Mode&fs.ModeSymlink != 0:
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Linkname
			return tw.WriteHeader(hdr)
		case r == nil:
			return nil
		}
		// Sizes are not known up front for every format, so buffer the member.
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		hdr.Typeflag = tar.TypeReg
		hdr.Size = int64(len(data))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
