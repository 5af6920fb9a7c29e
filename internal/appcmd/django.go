// django.go drives the application's own management tool: schema migration,
// static asset collection, and existence-gated admin account creation.
package appcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/pyenv"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
	StatusSkipped Status = "skipped"
)

// Admin holds the administrative account parameters. Credentials travel via
// the subprocess environment, never argv.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// ensureAdminScript prints "exists" or "created" so the step can report the
// no-op case. Credentials come from the environment set on the subprocess.
const ensureAdminScript = `import os
from django.contrib.auth import get_user_model
User = get_user_model()
name = os.environ["STACKUP_ADMIN_NAME"]
if User.objects.filter(username=name).exists():
    print("exists")
else:
    User.objects.create_superuser(name, os.environ["STACKUP_ADMIN_EMAIL"], os.environ["STACKUP_ADMIN_PASSWORD"])
    print("created")
`

// Migrate applies the application's schema migrations. Idempotency is the
// migration tool's own contract.
func Migrate(ctx context.Context, r execx.Runner, venvDir, installDir string) error {
	if err := r.Run(ctx, manage(venvDir, installDir, "migrate", "--noinput")); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CollectStatic gathers static assets into STATIC_ROOT.
func CollectStatic(ctx context.Context, r execx.Runner, venvDir, installDir string) error {
	if err := r.Run(ctx, manage(venvDir, installDir, "collectstatic", "--noinput")); err != nil {
		return fmt.Errorf("collect static assets: %w", err)
	}
	return nil
}

// EnsureAdmin creates the administrative account through the application's
// scripting interface unless one of that name already exists. An empty
// password skips the step entirely rather than installing a default
// credential.
func EnsureAdmin(ctx context.Context, r execx.Runner, venvDir, installDir string, admin Admin) (Status, error) {
	if admin.Password == "" {
		return StatusSkipped, nil
	}
	cmd := manage(venvDir, installDir, "shell", "-c", ensureAdminScript)
	cmd.Env = []string{
		"STACKUP_ADMIN_NAME=" + admin.Name,
		"STACKUP_ADMIN_EMAIL=" + admin.Email,
		"STACKUP_ADMIN_PASSWORD=" + admin.Password,
	}
	out, err := r.Output(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("ensure admin account: %w", err)
	}
	if strings.Contains(out, "created") {
		return StatusCreated, nil
	}
	return StatusExists, nil
}

func manage(venvDir, installDir string, args ...string) execx.Cmd {
	return execx.Cmd{
		Name: pyenv.Python(venvDir),
		Args: append([]string{"manage.py"}, args...),
		Dir:  installDir,
	}
}
