// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goplus/llpack/internal/command"
)

// Fake records every command it is asked to run.
//
// A command fails when its rendered form starts with one of the prefixes in
// Fail. OnRun, when set, is invoked for every successful Run or Output so
// tests can create the files a real tool would produce.
type Fake struct {
	Calls []command.Cmd

	Fail    []string
	Outputs map[string]string
	Paths   map[string]string
	OnRun   func(c *command.Cmd) error
}

func (f *Fake) Run(ctx context.Context, c *command.Cmd) error {
	f.Calls = append(f.Calls, *c)
	if c.Log != "" {
		file, err := command.OpenLog(c.Log, c.Append)
		if err != nil {
			return err
		}
		fmt.Fprintf(file, "$ %s\n", c)
		file.Close()
	}
	if f.failing(c) {
		return fmt.Errorf("%w: %s: exit status 1", command.ErrFailed, c)
	}
	if f.OnRun != nil {
		return f.OnRun(c)
	}
	return nil
}

func (f *Fake) Output(ctx context.Context, c *command.Cmd) (string, error) {
	f.Calls = append(f.Calls, *c)
	if f.failing(c) {
		return "", fmt.Errorf("%w: %s: exit status 1", command.ErrFailed, c)
	}
	if f.OnRun != nil {
		if err := f.OnRun(c); err != nil {
			return "", err
		}
	}
	return f.Outputs[c.String()], nil
}

func (f *Fake) LookPath(file string) (string, error) {
	if p, ok := f.Paths[file]; ok {
		return p, nil
	}
	return "", os.ErrNotExist
}

func (f *Fake) failing(c *command.Cmd) bool {
	s := c.String()
	for _, prefix := range f.Fail {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Commands returns the rendered form of every recorded call.
func (f *Fake) Commands() []string {
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}

// Ran reports whether a command with the given rendered prefix was recorded.
func (f *Fake) Ran(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			return true
		}
	}
	return false
}
