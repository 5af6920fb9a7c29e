package systemdunit

import (
	"context"
	"strings"
	"testing"

	"github.com/example/stackup/internal/execx/execxtest"
)

func sampleUnit() Unit {
	return Unit{
		App:              "webapp",
		User:             "webapp",
		Group:            "webapp",
		WorkingDirectory: "/srv/webapp",
		VenvDir:          "/srv/webapp/venv",
		SocketPath:       "/run/webapp/gunicorn.sock",
		Workers:          3,
		WSGIApp:          "webapp.wsgi:application",
	}
}

func TestExecStart(t *testing.T) {
	u := sampleUnit()
	u.ExtraArgs = []string{"--timeout", "120"}
	want := "/srv/webapp/venv/bin/gunicorn --workers 3 --bind unix:/run/webapp/gunicorn.sock --timeout 120 webapp.wsgi:application"
	if got := u.ExecStart(); got != want {
		t.Fatalf("unexpected ExecStart:\n got %s\nwant %s", got, want)
	}
}

func TestRuntimeDirectory(t *testing.T) {
	u := sampleUnit()
	if got := u.RuntimeDirectory(); got != "webapp" {
		t.Fatalf("expected webapp, got %q", got)
	}
	u.SocketPath = "/var/lib/webapp/app.sock"
	if got := u.RuntimeDirectory(); got != "" {
		t.Fatalf("expected empty for non-/run socket, got %q", got)
	}
}

func TestRenderUnit(t *testing.T) {
	content, err := Render(sampleUnit())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{
		"Description=gunicorn daemon for webapp",
		"User=webapp",
		"RuntimeDirectory=webapp",
		"WorkingDirectory=/srv/webapp",
		"ExecStart=/srv/webapp/venv/bin/gunicorn --workers 3 --bind unix:/run/webapp/gunicorn.sock webapp.wsgi:application",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("unit missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "RuntimeDirectory=\n") {
		t.Fatalf("empty RuntimeDirectory rendered:\n%s", content)
	}
}

func TestInstallSequence(t *testing.T) {
	rec := execxtest.New()
	if err := Install(context.Background(), rec, sampleUnit()); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if _, ok := rec.Writes["/etc/systemd/system/webapp.service"]; !ok {
		t.Fatalf("unit file not written: %v", rec.Writes)
	}
	wantOrder := []string{
		"systemctl daemon-reload",
		"systemctl enable --now webapp.service",
		"systemctl restart webapp.service",
	}
	if len(rec.Commands) != len(wantOrder) {
		t.Fatalf("expected %d commands, got %v", len(wantOrder), rec.Commands)
	}
	for i, want := range wantOrder {
		if rec.Commands[i].String() != want {
			t.Fatalf("command %d: got %s want %s", i, rec.Commands[i].String(), want)
		}
	}
}
