package provision

import (
	"context"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/stackup/internal/config"
	"github.com/example/stackup/internal/execx/execxtest"
	"github.com/example/stackup/internal/journal"
	"go.uber.org/zap"
)

func testDeps(t *testing.T) (Deps, *execxtest.Recorder) {
	t.Helper()
	cfg := config.New()
	cfg.InstallDir = t.TempDir()
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	rec := execxtest.New()
	return Deps{Cfg: cfg, Runner: rec, Log: zap.NewNop().Sugar(), DryRun: true}, rec
}

func TestRunExecutesAllStepsInOrder(t *testing.T) {
	d, rec := testDeps(t)
	if err := Run(context.Background(), d, Options{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// Spot-check one command per phase, in pipeline order.
	markers := []string{
		"apt-get update -q",
		"systemctl enable --now postgresql",
		"getent passwd webapp",
		"git clone https://github.com/example/webapp.git " + d.Cfg.InstallDir,
		d.Cfg.PythonBin + " -m venv " + d.Cfg.VenvDir,
		filepath.Join(d.Cfg.VenvDir, "bin", "python") + " manage.py migrate --noinput",
		"systemctl daemon-reload",
		"nginx -t",
		"chown -R webapp:webapp " + d.Cfg.InstallDir,
	}
	pos := -1
	for _, marker := range markers {
		found := -1
		for i, c := range rec.Commands {
			if c.String() == marker {
				found = i
				break
			}
		}
		if found < 0 {
			t.Fatalf("command %q never ran; got %v", marker, rec.Commands)
		}
		if found <= pos {
			t.Fatalf("command %q ran out of order", marker)
		}
		pos = found
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	d, rec := testDeps(t)
	rec.FailOn("apt-get update -q", "no network")
	err := Run(context.Background(), d, Options{})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "step packages") {
		t.Fatalf("error not attributed to step: %v", err)
	}
	if rec.Ran("systemctl enable --now postgresql") {
		t.Fatalf("later steps must not run after a failure")
	}
}

func TestRunOnlyAndSkipSelection(t *testing.T) {
	d, rec := testDeps(t)
	err := Run(context.Background(), d, Options{Only: []string{"packages", "database"}, Skip: []string{"database"}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !rec.Ran("apt-get update -q") {
		t.Fatalf("selected step did not run")
	}
	if rec.Ran("systemctl enable --now postgresql") {
		t.Fatalf("skipped step ran")
	}
}

func TestRunRejectsUnknownStep(t *testing.T) {
	d, _ := testDeps(t)
	err := Run(context.Background(), d, Options{Only: []string{"nonesuch"}})
	if err == nil || !strings.Contains(err.Error(), "unknown step") {
		t.Fatalf("expected unknown step error, got %v", err)
	}
}

func TestRunRecordsJournal(t *testing.T) {
	d, rec := testDeps(t)
	d.DryRun = false
	me, err := user.Current()
	if err != nil {
		t.Skipf("cannot resolve current user: %v", err)
	}
	d.Cfg.ServiceUser = me.Username
	d.Cfg.ServiceGroup = me.Username
	rec.FailOn("nginx -t", "broken config")

	runErr := Run(context.Background(), d, Options{})
	if runErr == nil {
		t.Fatalf("expected proxy step failure")
	}

	j, err := journal.Open(d.Cfg.JournalPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	last, err := j.LastRun(context.Background())
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if last == nil || last.Status != "failed" {
		t.Fatalf("run not journaled as failed: %+v", last)
	}
	final := last.Steps[len(last.Steps)-1]
	if final.Name != "proxy" || final.Status != "failed" {
		t.Fatalf("failing step not journaled: %+v", final)
	}
	if !strings.Contains(final.Error, "broken config") {
		t.Fatalf("step error not journaled: %+v", final)
	}
}
