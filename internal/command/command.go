// Package command runs external toolchain commands as structured argument
// lists with an explicit working directory.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	utilexec "k8s.io/utils/exec"
)

// ErrFailed is wrapped by every error caused by a command that could not be
// started or that exited with a non-zero status.
var ErrFailed = errors.New("command failed")

// Cmd describes one invocation of an external tool.
type Cmd struct {
	Name string
	Args []string

	// Dir is the working directory of the process. An empty Dir means the
	// current directory of the calling process.
	Dir string

	// Env overrides or adds environment variables on top of os.Environ.
	Env map[string]string

	// Log receives the combined standard output and standard error of the
	// process. The file is truncated unless Append is set.
	Log    string
	Append bool

	Stdin io.Reader
}

// String renders the command the way a shell user would type it.
func (c *Cmd) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Runner executes commands. Implementations block until the process exits.
type Runner interface {
	// Run runs c and returns an error wrapping ErrFailed on a non-zero exit.
	Run(ctx context.Context, c *Cmd) error

	// Output runs c and returns its standard output. c.Log is ignored.
	Output(ctx context.Context, c *Cmd) (string, error)

	// LookPath searches for an executable in PATH.
	LookPath(file string) (string, error)
}

type execRunner struct {
	exec utilexec.Interface
}

// New returns a Runner backed by the host's process execution.
func New() Runner {
	return &execRunner{exec: utilexec.New()}
}

func (r *execRunner) prepare(ctx context.Context, c *Cmd) utilexec.Cmd {
	cmd := r.exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.SetDir(c.Dir)
	}
	if len(c.Env) > 0 {
		cmd.SetEnv(MergeEnv(os.Environ(), c.Env))
	}
	if c.Stdin != nil {
		cmd.SetStdin(c.Stdin)
	}
	return cmd
}

func (r *execRunner) Run(ctx context.Context, c *Cmd) error {
	cmd := r.prepare(ctx, c)

	if c.Log != "" {
		f, err := OpenLog(c.Log, c.Append)
		if err != nil {
			return err
		}
		defer f.Close()
		cmd.SetStdout(f)
		cmd.SetStderr(f)
	} else {
		cmd.SetStdout(os.Stdout)
		cmd.SetStderr(os.Stderr)
	}
	return wrap(c, cmd.Run(), "")
}

func (r *execRunner) Output(ctx context.Context, c *Cmd) (string, error) {
	cmd := r.prepare(ctx, c)

	var stdout, stderr bytes.Buffer
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)

	if err := cmd.Run(); err != nil {
		return "", wrap(c, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (r *execRunner) LookPath(file string) (string, error) {
	return r.exec.LookPath(file)
}

// OpenLog opens a build log for writing, truncating it unless appending.
func OpenLog(path string, appending bool) (*os.File, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.OpenFile(path, flag, 0o644)
}

func wrap(c *Cmd, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		if stderr != "" {
			return fmt.Errorf("%w: %s: exit status %d: %s", ErrFailed, c, exitErr.ExitStatus(), stderr)
		}
		return fmt.Errorf("%w: %s: exit status %d", ErrFailed, c, exitErr.ExitStatus())
	}
	return fmt.Errorf("%w: %s: %v", ErrFailed, c, err)
}

// MergeEnv overlays override onto base and returns a sorted KEY=VALUE list.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
