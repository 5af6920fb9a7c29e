// provision_test.go checks psql command construction and existence gating.
package postgres

import (
	"context"
	"testing"

	"github.com/example/stackup/internal/execx/execxtest"
)

const roleProbe = "sudo -u postgres psql -tAc SELECT 1 FROM pg_roles WHERE rolname = 'webapp'"
const dbProbe = "sudo -u postgres psql -tAc SELECT 1 FROM pg_database WHERE datname = 'webapp'"

func TestEnsureRoleSkipsExisting(t *testing.T) {
	rec := execxtest.New()
	rec.OutputOn(roleProbe, "1")
	status, err := EnsureRole(context.Background(), rec, "webapp", "pw")
	if err != nil {
		t.Fatalf("ensure role failed: %v", err)
	}
	if status != StatusExists {
		t.Fatalf("expected exists, got %s", status)
	}
	if len(rec.Commands) != 1 {
		t.Fatalf("no create command should be issued, ran %d commands", len(rec.Commands))
	}
}

func TestEnsureRoleCreatesMissing(t *testing.T) {
	rec := execxtest.New()
	status, err := EnsureRole(context.Background(), rec, "webapp", "s3cr3t")
	if err != nil {
		t.Fatalf("ensure role failed: %v", err)
	}
	if status != StatusCreated {
		t.Fatalf("expected created, got %s", status)
	}
	want := `sudo -u postgres psql -c CREATE ROLE "webapp" WITH LOGIN PASSWORD 's3cr3t'`
	if !rec.Ran(want) {
		t.Fatalf("create command not issued, got %v", rec.Commands)
	}
}

func TestEnsureRoleEscapesPassword(t *testing.T) {
	rec := execxtest.New()
	if _, err := EnsureRole(context.Background(), rec, "webapp", "it's"); err != nil {
		t.Fatalf("ensure role failed: %v", err)
	}
	want := `sudo -u postgres psql -c CREATE ROLE "webapp" WITH LOGIN PASSWORD 'it''s'`
	if !rec.Ran(want) {
		t.Fatalf("password not escaped, got %v", rec.Commands)
	}
}

func TestEnsureDatabaseSkipsExisting(t *testing.T) {
	rec := execxtest.New()
	rec.OutputOn(dbProbe, "1")
	status, err := EnsureDatabase(context.Background(), rec, "webapp", "webapp")
	if err != nil {
		t.Fatalf("ensure database failed: %v", err)
	}
	if status != StatusExists {
		t.Fatalf("expected exists, got %s", status)
	}
}

func TestEnsureDatabaseCreatesMissing(t *testing.T) {
	rec := execxtest.New()
	status, err := EnsureDatabase(context.Background(), rec, "webapp", "webapp")
	if err != nil {
		t.Fatalf("ensure database failed: %v", err)
	}
	if status != StatusCreated {
		t.Fatalf("expected created, got %s", status)
	}
	want := `sudo -u postgres psql -c CREATE DATABASE "webapp" OWNER "webapp"`
	if !rec.Ran(want) {
		t.Fatalf("create command not issued, got %v", rec.Commands)
	}
}

func TestEnsureServiceUsesEnableNow(t *testing.T) {
	rec := execxtest.New()
	if err := EnsureService(context.Background(), rec); err != nil {
		t.Fatalf("ensure service failed: %v", err)
	}
	if !rec.Ran("systemctl enable --now postgresql") {
		t.Fatalf("service not enabled, got %v", rec.Commands)
	}
}
