// settings.go writes the application's local settings. The generated values
// live inside a marker-delimited block that is rewritten in place on every
// run, so repeated provisioning converges instead of appending duplicates.
package appconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/example/stackup/internal/execx"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
)

const (
	beginMarker = "# --- stackup managed ---"
	endMarker   = "# --- end stackup managed ---"

	// FileName is the settings file the application imports locally.
	FileName = "local_settings.py"
	// ExampleName is the template shipped with the application source.
	ExampleName = "local_settings.example.py"
)

// Settings is everything rendered into the managed block.
type Settings struct {
	SecretKey    string
	AllowedHosts []string
	DBName       string
	DBUser       string
	DBPassword   string
	RedisURL     string
	StaticRoot   string
}

var blockTemplate = template.Must(template.New("settings").Option("missingkey=error").Parse(`{{.Begin}}
# Generated by stackup. Everything inside this block is rewritten on each
# run; put local overrides outside the markers.
SECRET_KEY = "{{.SecretKey}}"
ALLOWED_HOSTS = [{{range .AllowedHosts}}"{{.}}", {{end}}]
DATABASES = {
    "default": {
        "ENGINE": "django.db.backends.postgresql",
        "NAME": "{{.DBName}}",
        "USER": "{{.DBUser}}",
        "PASSWORD": "{{.DBPassword}}",
        "HOST": "127.0.0.1",
        "PORT": "5432",
    }
}
CACHES = {
    "default": {
        "BACKEND": "django.core.cache.backends.redis.RedisCache",
        "LOCATION": "{{.RedisURL}}",
    }
}
STATIC_ROOT = "{{.StaticRoot}}"
{{.End}}`))

var secretRe = regexp.MustCompile(`(?m)^SECRET_KEY = "([^"]+)"$`)

// Ensure writes the settings file under installDir. A missing file is seeded
// from the shipped example when present; the managed block is then rendered
// and spliced in. The SECRET_KEY already present in a managed block survives
// re-runs, everything else in the block is regenerated from s.
func Ensure(w execx.FileWriter, installDir string, s Settings) (Status, error) {
	target := filepath.Join(installDir, FileName)
	status := StatusExists
	existing, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		status = StatusCreated
		existing, err = os.ReadFile(filepath.Join(installDir, ExampleName))
		if os.IsNotExist(err) {
			existing = nil
		} else if err != nil {
			return "", fmt.Errorf("read example settings: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("read settings: %w", err)
	}

	if s.SecretKey == "" {
		if prior := extractSecret(string(existing)); prior != "" {
			s.SecretKey = prior
		} else {
			key, err := NewSecretKey()
			if err != nil {
				return "", err
			}
			s.SecretKey = key
		}
	}

	block, err := renderBlock(s)
	if err != nil {
		return "", err
	}
	content := spliceManaged(string(existing), block)
	if err := w.WriteFile(target, []byte(content), 0o640); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}
	return status, nil
}

func renderBlock(s Settings) (string, error) {
	data := struct {
		Settings
		Begin string
		End   string
	}{Settings: s, Begin: beginMarker, End: endMarker}
	var buf bytes.Buffer
	if err := blockTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render settings block: %w", err)
	}
	return buf.String(), nil
}

// spliceManaged replaces the existing managed block or appends one if the
// markers are absent.
func spliceManaged(content, block string) string {
	begin := strings.Index(content, beginMarker)
	end := strings.Index(content, endMarker)
	if begin >= 0 && end > begin {
		return content[:begin] + block + content[end+len(endMarker):]
	}
	if content == "" {
		return block + "\n"
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + block + "\n"
}

func extractSecret(content string) string {
	begin := strings.Index(content, beginMarker)
	end := strings.Index(content, endMarker)
	if begin < 0 || end <= begin {
		return ""
	}
	m := secretRe.FindStringSubmatch(content[begin:end])
	if m == nil {
		return ""
	}
	return m[1]
}
