package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"
)

// Archive provides the source of a project published as a release archive,
// either at an HTTP(S) URL or at a local path.
type Archive struct {
	Name    string
	URL     string
	WorkDir string

	Client *http.Client
}

var _ Provider = (*Archive)(nil)

// NewArchive returns an archive provider downloading rawURL into workDir.
func NewArchive(name, rawURL, workDir string) *Archive {
	return &Archive{Name: name, URL: rawURL, WorkDir: workDir, Client: http.DefaultClient}
}

func (a *Archive) ProjectName() string {
	return a.Name
}

func (a *Archive) ProjectIdentifier() string {
	return identifier(a.URL, a.Name)
}

// ProjectVersion parses the version from the archive filename, which is
// expected to look like <name>-<version>.<ext>.
func (a *Archive) ProjectVersion(ctx context.Context) string {
	return versionFromFilename(a.Name, a.filename())
}

func (a *Archive) filename() string {
	if u, err := url.Parse(a.URL); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return path.Base(u.Path)
	}
	return filepath.Base(strings.TrimPrefix(a.URL, "file://"))
}

func (a *Archive) Download(ctx context.Context) (string, error) {
	dst := filepath.Join(a.WorkDir, a.filename())
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if archiveExt(dst) == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArchive, a.filename())
	}
	if err := os.MkdirAll(a.WorkDir, 0o755); err != nil {
		return "", err
	}

	u, err := url.Parse(a.URL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		log.Infof("Downloading: %s", a.URL)
		err = a.fetch(ctx, dst)
	} else {
		err = copyFile(strings.TrimPrefix(a.URL, "file://"), dst)
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}

func (a *Archive) fetch(ctx context.Context, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return err
	}
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", a.URL, resp.StatusCode)
	}
	return writeFile(dst, resp.Body)
}

func (a *Archive) Create(ctx context.Context) (string, error) {
	file, err := a.Download(ctx)
	if err != nil {
		return "", err
	}
	return create(file, a.Name, a.ProjectVersion(ctx))
}

// create extracts file into <dir of file>/<name>-<version> unless that
// directory already exists.
func create(file, name, version string) (string, error) {
	dirName := name
	if version != "" {
		dirName = name + "-" + version
	}
	dir := filepath.Join(filepath.Dir(file), dirName)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return dir, nil
	}
	if err := extractTo(file, dir); err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(file), err)
	}
	return dir, nil
}

// versionFromFilename returns the version part of <name>-<version>.<ext>.
// Names that do not start with name fall back to the text after the last
// "-".
func versionFromFilename(name, filename string) string {
	base := filename
	if ext := archiveExt(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if v, ok := strings.CutPrefix(base, name+"-"); ok {
		return v
	}
	if i := strings.LastIndex(base, "-"); i >= 0 {
		return base[i+1:]
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("source archive %s not found", src)
		}
		return err
	}
	defer in.Close()
	return writeFile(dst, in)
}

// writeFile writes r to a temporary file next to dst and renames it into
// place once complete.
func writeFile(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".llpack-download-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
