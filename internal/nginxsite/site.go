// site.go renders and enables the nginx site that fronts the gunicorn
// socket and serves static files directly.
package nginxsite

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/example/stackup/internal/execx"
)

const (
	availableDir = "/etc/nginx/sites-available"
	enabledDir   = "/etc/nginx/sites-enabled"
)

var siteTemplate = template.Must(template.New("site").Option("missingkey=error").Parse(`server {
    listen 80;
    server_name {{.Domain}};

    location /static/ {
        alias {{.StaticRoot}}/;
    }

    location / {
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_pass http://unix:{{.SocketPath}};
    }
}
`))

// Site describes the rendered reverse-proxy definition.
type Site struct {
	App        string
	Domain     string
	SocketPath string
	StaticRoot string
}

// Render produces the site file contents.
func Render(s Site) (string, error) {
	var buf bytes.Buffer
	if err := siteTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render site: %w", err)
	}
	return buf.String(), nil
}

// Install writes the site into sites-available, enables it, and validates
// the full nginx configuration before reloading. A failed validation rolls
// the symlink back so nginx never reloads into a broken config.
func Install(ctx context.Context, r execx.Runner, s Site) error {
	content, err := Render(s)
	if err != nil {
		return err
	}
	available := filepath.Join(availableDir, s.App+".conf")
	if err := r.WriteFile(available, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write site: %w", err)
	}
	enabled := filepath.Join(enabledDir, s.App+".conf")
	if err := r.Symlink(available, enabled); err != nil {
		return fmt.Errorf("enable site: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "nginx", Args: []string{"-t"}}); err != nil {
		if rerr := r.Remove(enabled); rerr != nil {
			return fmt.Errorf("validate site: %w (rollback also failed: %v)", err, rerr)
		}
		return fmt.Errorf("validate site: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"enable", "--now", "nginx"}}); err != nil {
		return fmt.Errorf("start nginx: %w", err)
	}
	if err := r.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"reload", "nginx"}}); err != nil {
		return fmt.Errorf("reload nginx: %w", err)
	}
	return nil
}
