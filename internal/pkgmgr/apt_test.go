package pkgmgr

import (
	"context"
	"strings"
	"testing"

	"github.com/example/stackup/internal/execx/execxtest"
)

func TestInstallCommandConstruction(t *testing.T) {
	rec := execxtest.New()
	err := Install(context.Background(), rec, []string{"git", "nginx"})
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if len(rec.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(rec.Commands))
	}
	if got := rec.Commands[0].String(); got != "apt-get update -q" {
		t.Fatalf("unexpected update command: %s", got)
	}
	if got := rec.Commands[1].String(); got != "apt-get install -y -q git nginx" {
		t.Fatalf("unexpected install command: %s", got)
	}
	for _, c := range rec.Commands {
		if len(c.Env) != 1 || c.Env[0] != "DEBIAN_FRONTEND=noninteractive" {
			t.Fatalf("missing noninteractive env on %s", c.String())
		}
	}
}

func TestInstallEmptyList(t *testing.T) {
	rec := execxtest.New()
	if err := Install(context.Background(), rec, nil); err == nil {
		t.Fatalf("expected error for empty package list")
	}
	if len(rec.Commands) != 0 {
		t.Fatalf("no commands should run for empty list")
	}
}

func TestInstallPropagatesFailure(t *testing.T) {
	rec := execxtest.New()
	rec.FailOn("apt-get update -q", "temporary failure resolving archive.ubuntu.com")
	err := Install(context.Background(), rec, []string{"git"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "refresh package index") {
		t.Fatalf("error not wrapped: %v", err)
	}
}
