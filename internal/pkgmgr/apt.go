// apt.go installs system dependencies through the OS package manager.
package pkgmgr

import (
	"context"
	"fmt"

	"github.com/example/stackup/internal/execx"
)

const nonInteractive = "DEBIAN_FRONTEND=noninteractive"

// Install refreshes the package index and installs the given packages
// non-interactively. A failing apt-get aborts the run.
func Install(ctx context.Context, r execx.Runner, packages []string) error {
	if len(packages) == 0 {
		return fmt.Errorf("no packages configured")
	}
	update := execx.Cmd{
		Name: "apt-get",
		Args: []string{"update", "-q"},
		Env:  []string{nonInteractive},
	}
	if err := r.Run(ctx, update); err != nil {
		return fmt.Errorf("refresh package index: %w", err)
	}
	install := execx.Cmd{
		Name: "apt-get",
		Args: append([]string{"install", "-y", "-q"}, packages...),
		Env:  []string{nonInteractive},
	}
	if err := r.Run(ctx, install); err != nil {
		return fmt.Errorf("install packages: %w", err)
	}
	return nil
}
