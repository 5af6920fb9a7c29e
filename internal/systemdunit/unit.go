// unit.go renders and installs the systemd unit that runs the application
// under gunicorn on a local UNIX socket.
package systemdunit

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/pyenv"
)

const unitDir = "/etc/systemd/system"

var unitTemplate = template.Must(template.New("unit").Option("missingkey=error").Parse(`[Unit]
Description=gunicorn daemon for {{.App}}
After=network.target postgresql.service redis-server.service

[Service]
Type=notify
User={{.User}}
Group={{.Group}}
{{- if .RuntimeDirectory}}
RuntimeDirectory={{.RuntimeDirectory}}
{{- end}}
WorkingDirectory={{.WorkingDirectory}}
ExecStart={{.ExecStart}}
Restart=on-failure

[Install]
WantedBy=multi-user.target
`))

// Unit describes the rendered service.
type Unit struct {
	App              string
	User             string
	Group            string
	WorkingDirectory string
	VenvDir          string
	SocketPath       string
	Workers          int
	WSGIApp          string
	ExtraArgs        []string
}

// ExecStart builds the gunicorn command line bound to the UNIX socket.
func (u Unit) ExecStart() string {
	parts := []string{
		pyenv.Gunicorn(u.VenvDir),
		"--workers", fmt.Sprintf("%d", u.Workers),
		"--bind", "unix:" + u.SocketPath,
	}
	parts = append(parts, u.ExtraArgs...)
	parts = append(parts, u.WSGIApp)
	return strings.Join(parts, " ")
}

// RuntimeDirectory returns the socket parent relative to /run so systemd
// recreates it with the right ownership on boot, or "" when the socket lives
// elsewhere.
func (u Unit) RuntimeDirectory() string {
	dir := filepath.Dir(u.SocketPath)
	rel := strings.TrimPrefix(dir, "/run/")
	if rel == dir || rel == "" || strings.Contains(rel, "..") {
		return ""
	}
	return rel
}

// Render produces the unit file contents.
func Render(u Unit) (string, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, u); err != nil {
		return "", fmt.Errorf("render unit: %w", err)
	}
	return buf.String(), nil
}

// Install writes the unit, reloads systemd, and (re)starts the service.
// Re-runs restart so a changed unit or new code takes effect.
func Install(ctx context.Context, r execx.Runner, u Unit) error {
	content, err := Render(u)
	if err != nil {
		return err
	}
	path := filepath.Join(unitDir, u.App+".service")
	if err := r.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"daemon-reload"}}); err != nil {
		return fmt.Errorf("reload systemd: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"enable", "--now", u.App + ".service"}}); err != nil {
		return fmt.Errorf("enable service: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"restart", u.App + ".service"}}); err != nil {
		return fmt.Errorf("restart service: %w", err)
	}
	return nil
}
