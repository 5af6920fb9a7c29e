// Package execxtest provides a recording execx.Runner for step tests:
// commands are captured instead of executed, with scripted outputs and
// failures keyed by the rendered command line.
package execxtest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/example/stackup/internal/execx"
)

type Recorder struct {
	Commands []execx.Cmd
	Writes   map[string][]byte
	Links    map[string]string
	Removed  []string

	outputs  map[string]string
	failures map[string]string
}

func New() *Recorder {
	return &Recorder{
		Writes:   make(map[string][]byte),
		Links:    make(map[string]string),
		outputs:  make(map[string]string),
		failures: make(map[string]string),
	}
}

// OutputOn scripts stdout for a command line (as rendered by Cmd.String).
func (r *Recorder) OutputOn(cmdline, out string) {
	r.outputs[cmdline] = out
}

// FailOn makes the given command line fail with the message.
func (r *Recorder) FailOn(cmdline, message string) {
	r.failures[cmdline] = message
}

// Ran reports whether a command line was executed.
func (r *Recorder) Ran(cmdline string) bool {
	for _, c := range r.Commands {
		if c.String() == cmdline {
			return true
		}
	}
	return false
}

func (r *Recorder) Run(_ context.Context, c execx.Cmd) error {
	r.Commands = append(r.Commands, c)
	if msg, ok := r.failures[c.String()]; ok {
		return fmt.Errorf("%s: %s", c.String(), msg)
	}
	return nil
}

func (r *Recorder) Output(_ context.Context, c execx.Cmd) (string, error) {
	r.Commands = append(r.Commands, c)
	if msg, ok := r.failures[c.String()]; ok {
		return "", errors.New(msg)
	}
	return r.outputs[c.String()], nil
}

func (r *Recorder) WriteFile(path string, data []byte, _ os.FileMode) error {
	r.Writes[path] = append([]byte(nil), data...)
	return nil
}

func (r *Recorder) Symlink(target, link string) error {
	r.Links[link] = target
	return nil
}

func (r *Recorder) Remove(path string) error {
	r.Removed = append(r.Removed, path)
	delete(r.Links, path)
	return nil
}

var _ execx.Runner = (*Recorder)(nil)
