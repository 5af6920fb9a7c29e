// user.go provisions the unprivileged OS account the application runs as.
package sysuser

import (
	"context"
	"fmt"

	"github.com/example/stackup/internal/execx"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
)

// Ensure creates a system account (and its group) if absent. The account
// gets the install dir as home and no login shell. An existing account is
// left untouched even if its home or shell differ.
func Ensure(ctx context.Context, r execx.Runner, name, group, homeDir string) (Status, error) {
	if userExists(ctx, r, name) {
		return StatusExists, nil
	}
	if group != name && !groupExists(ctx, r, group) {
		if err := r.Run(ctx, execx.Cmd{Name: "groupadd", Args: []string{"--system", group}}); err != nil {
			return "", fmt.Errorf("create group %s: %w", group, err)
		}
	}
	args := []string{"--system", "--home-dir", homeDir, "--no-create-home", "--shell", "/usr/sbin/nologin"}
	if group == name {
		args = append(args, "--user-group")
	} else {
		args = append(args, "--gid", group)
	}
	args = append(args, name)
	if err := r.Run(ctx, execx.Cmd{Name: "useradd", Args: args}); err != nil {
		return "", fmt.Errorf("create user %s: %w", name, err)
	}
	return StatusCreated, nil
}

// getent exits non-zero and prints nothing for missing entries, so a failed
// probe means absent rather than an error worth aborting on.
func userExists(ctx context.Context, r execx.Runner, name string) bool {
	out, err := r.Output(ctx, execx.Cmd{Name: "getent", Args: []string{"passwd", name}})
	return err == nil && out != ""
}

func groupExists(ctx context.Context, r execx.Runner, name string) bool {
	out, err := r.Output(ctx, execx.Cmd{Name: "getent", Args: []string{"group", name}})
	return err == nil && out != ""
}
