// runner.go wraps exec.CommandContext so provisioning steps share one
// subprocess surface with dry-run support.
package execx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes a single external command invocation.
type Cmd struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string // extra KEY=VALUE entries appended to the inherited environment
	Stdin io.Reader
}

func (c Cmd) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// FileWriter applies file side effects. Split out so steps that only write
// configuration can take the narrow surface.
type FileWriter interface {
	WriteFile(path string, data []byte, mode os.FileMode) error
	Symlink(target, link string) error
	Remove(path string) error
}

// Runner executes external commands and file writes. Steps depend on this
// interface so tests can record command construction without shelling out,
// and so dry-run can print side effects instead of applying them.
type Runner interface {
	// Run executes the command, streaming stdout and stderr through.
	Run(ctx context.Context, cmd Cmd) error
	// Output executes the command and returns trimmed stdout. Stderr is
	// captured and folded into the error on failure.
	Output(ctx context.Context, cmd Cmd) (string, error)
	FileWriter
}

// System returns a Runner backed by the host.
func System() Runner {
	return &systemRunner{out: os.Stdout, errOut: os.Stderr}
}

type systemRunner struct {
	out    io.Writer
	errOut io.Writer
}

func (r *systemRunner) Run(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = r.out
	cmd.Stderr = r.errOut
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.String(), err)
	}
	return nil
}

func (r *systemRunner) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %s", c.String(), msg)
		}
		return "", fmt.Errorf("%s: %w", c.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *systemRunner) WriteFile(path string, data []byte, mode os.FileMode) error {
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *systemRunner) Symlink(target, link string) error {
	if existing, err := os.Readlink(link); err == nil && existing == target {
		return nil
	}
	_ = os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("link %s -> %s: %w", link, target, err)
	}
	return nil
}

func (r *systemRunner) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// DryRun returns a Runner that prints each command instead of executing it.
// Output probes report empty results, so existence-gated steps take their
// create path and the plan shows every command a clean host would see.
func DryRun(w io.Writer) Runner {
	if w == nil {
		w = os.Stdout
	}
	return &dryRunner{w: w}
}

type dryRunner struct {
	w io.Writer
}

func (r *dryRunner) Run(_ context.Context, c Cmd) error {
	fmt.Fprintf(r.w, "would run: %s\n", c.String())
	return nil
}

func (r *dryRunner) Output(_ context.Context, c Cmd) (string, error) {
	fmt.Fprintf(r.w, "would run: %s\n", c.String())
	return "", nil
}

func (r *dryRunner) WriteFile(path string, data []byte, mode os.FileMode) error {
	fmt.Fprintf(r.w, "would write: %s (%d bytes, mode %o)\n", path, len(data), mode)
	return nil
}

func (r *dryRunner) Symlink(target, link string) error {
	fmt.Fprintf(r.w, "would link: %s -> %s\n", link, target)
	return nil
}

func (r *dryRunner) Remove(path string) error {
	fmt.Fprintf(r.w, "would remove: %s\n", path)
	return nil
}
