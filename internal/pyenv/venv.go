// venv.go creates the isolated Python environment and installs the
// application's dependency manifest plus gunicorn into it.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/stackup/internal/execx"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
)

// Ensure creates the virtualenv once (skipped when the directory exists) and
// installs dependencies on every run. No lock-file verification is done; pip
// decides what satisfies the manifest.
func Ensure(ctx context.Context, r execx.Runner, pythonBin, venvDir, installDir string) (Status, error) {
	status := StatusExists
	if _, err := os.Stat(venvDir); os.IsNotExist(err) {
		create := execx.Cmd{Name: pythonBin, Args: []string{"-m", "venv", venvDir}}
		if err := r.Run(ctx, create); err != nil {
			return "", fmt.Errorf("create virtualenv: %w", err)
		}
		status = StatusCreated
	} else if err != nil {
		return "", fmt.Errorf("stat virtualenv: %w", err)
	}

	pip := Pip(venvDir)
	if err := r.Run(ctx, execx.Cmd{Name: pip, Args: []string{"install", "--upgrade", "pip"}}); err != nil {
		return "", fmt.Errorf("upgrade pip: %w", err)
	}
	manifest := filepath.Join(installDir, "requirements.txt")
	if err := r.Run(ctx, execx.Cmd{Name: pip, Args: []string{"install", "-r", manifest}, Dir: installDir}); err != nil {
		return "", fmt.Errorf("install requirements: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: pip, Args: []string{"install", "gunicorn"}}); err != nil {
		return "", fmt.Errorf("install gunicorn: %w", err)
	}
	return status, nil
}

// Pip returns the pip binary inside the virtualenv.
func Pip(venvDir string) string {
	return filepath.Join(venvDir, "bin", "pip")
}

// Python returns the interpreter inside the virtualenv.
func Python(venvDir string) string {
	return filepath.Join(venvDir, "bin", "python")
}

// Gunicorn returns the gunicorn binary inside the virtualenv.
func Gunicorn(venvDir string) string {
	return filepath.Join(venvDir, "bin", "gunicorn")
}
