// provision.go ensures the PostgreSQL role and database for the application
// exist, using existence probes before any CREATE statement.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/stackup/internal/execx"
)

// Status reports what a provisioning call did.
type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
)

// EnsureService starts and enables the postgresql unit. enable --now is
// idempotent, so re-runs are no-ops.
func EnsureService(ctx context.Context, r execx.Runner) error {
	cmd := execx.Cmd{Name: "systemctl", Args: []string{"enable", "--now", "postgresql"}}
	if err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("start postgresql service: %w", err)
	}
	return nil
}

// EnsureRole creates the login role with the given password if it does not
// exist. An existing role is left untouched even if its attributes differ.
func EnsureRole(ctx context.Context, r execx.Runner, name, password string) (Status, error) {
	probe := fmt.Sprintf("SELECT 1 FROM pg_roles WHERE rolname = %s", quoteLiteral(name))
	out, err := r.Output(ctx, asPostgres("psql", "-tAc", probe))
	if err != nil {
		return "", fmt.Errorf("check role %s: %w", name, err)
	}
	if strings.TrimSpace(out) == "1" {
		return StatusExists, nil
	}
	create := fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s", quoteIdent(name), quoteLiteral(password))
	if err := r.Run(ctx, asPostgres("psql", "-c", create)); err != nil {
		return "", fmt.Errorf("create role %s: %w", name, err)
	}
	return StatusCreated, nil
}

// EnsureDatabase creates the database owned by the given role if it does not
// exist.
func EnsureDatabase(ctx context.Context, r execx.Runner, name, owner string) (Status, error) {
	probe := fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = %s", quoteLiteral(name))
	out, err := r.Output(ctx, asPostgres("psql", "-tAc", probe))
	if err != nil {
		return "", fmt.Errorf("check database %s: %w", name, err)
	}
	if strings.TrimSpace(out) == "1" {
		return StatusExists, nil
	}
	create := fmt.Sprintf("CREATE DATABASE %s OWNER %s", quoteIdent(name), quoteIdent(owner))
	if err := r.Run(ctx, asPostgres("psql", "-c", create)); err != nil {
		return "", fmt.Errorf("create database %s: %w", name, err)
	}
	return StatusCreated, nil
}

// asPostgres builds an argv running the command as the postgres OS user,
// which authenticates via peer auth without a password.
func asPostgres(name string, args ...string) execx.Cmd {
	full := append([]string{"-u", "postgres", name}, args...)
	return execx.Cmd{Name: "sudo", Args: full}
}

// quoteLiteral renders a SQL string literal, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent renders a SQL identifier, doubling embedded double quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
