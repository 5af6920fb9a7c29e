package appcmd

import (
	"context"
	"strings"
	"testing"

	"github.com/example/stackup/internal/execx/execxtest"
)

func TestMigrateCommandConstruction(t *testing.T) {
	rec := execxtest.New()
	if err := Migrate(context.Background(), rec, "/srv/webapp/venv", "/srv/webapp"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if len(rec.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(rec.Commands))
	}
	c := rec.Commands[0]
	if c.String() != "/srv/webapp/venv/bin/python manage.py migrate --noinput" {
		t.Fatalf("unexpected command: %s", c.String())
	}
	if c.Dir != "/srv/webapp" {
		t.Fatalf("expected working dir /srv/webapp, got %s", c.Dir)
	}
}

func TestCollectStaticCommandConstruction(t *testing.T) {
	rec := execxtest.New()
	if err := CollectStatic(context.Background(), rec, "/srv/webapp/venv", "/srv/webapp"); err != nil {
		t.Fatalf("collectstatic failed: %v", err)
	}
	if rec.Commands[0].String() != "/srv/webapp/venv/bin/python manage.py collectstatic --noinput" {
		t.Fatalf("unexpected command: %s", rec.Commands[0].String())
	}
}

func TestEnsureAdminSkipsWithoutPassword(t *testing.T) {
	rec := execxtest.New()
	status, err := EnsureAdmin(context.Background(), rec, "/v", "/i", Admin{Name: "admin"})
	if err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", status)
	}
	if len(rec.Commands) != 0 {
		t.Fatalf("no command should run without a password")
	}
}

func TestEnsureAdminPassesCredentialsViaEnv(t *testing.T) {
	rec := execxtest.New()
	admin := Admin{Name: "admin", Email: "admin@example.com", Password: "pw"}
	if _, err := EnsureAdmin(context.Background(), rec, "/v", "/i", admin); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	c := rec.Commands[0]
	for _, arg := range c.Args {
		if strings.Contains(arg, "pw") && strings.Contains(arg, "PASSWORD=") {
			t.Fatalf("password leaked into argv: %v", c.Args)
		}
	}
	found := false
	for _, kv := range c.Env {
		if kv == "STACKUP_ADMIN_PASSWORD=pw" {
			found = true
		}
	}
	if !found {
		t.Fatalf("password not passed via env: %v", c.Env)
	}
}

func TestEnsureAdminReportsExistingAccount(t *testing.T) {
	rec := execxtest.New()
	admin := Admin{Name: "admin", Email: "a@b", Password: "pw"}
	// Script the shell probe to report an existing user.
	cmdline := "/v/bin/python manage.py shell -c " + ensureAdminScript
	rec.OutputOn(cmdline, "exists")
	status, err := EnsureAdmin(context.Background(), rec, "/v", "/i", admin)
	if err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if status != StatusExists {
		t.Fatalf("expected exists, got %s", status)
	}
}
