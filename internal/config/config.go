// Package config defines the flag plumbing and runtime settings for the
// provisioning pipeline, translating Cobra/Viper flag values into a strongly
// typed struct that every step consumes read-only.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"
)

// Config holds every setting the pipeline reads. All fields are overridable
// through STACKUP_* environment variables or the mirrored flags.
type Config struct {
	AppName      string
	Version      string
	RepoURL      string
	InstallDir   string
	ServiceUser  string
	ServiceGroup string
	PythonBin    string
	VenvDir      string

	DBName     string
	DBUser     string
	DBPassword string
	RedisURL   string

	Domain       string
	AllowedHosts []string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	SocketPath        string
	Workers           int
	WSGIApp           string
	GunicornExtraArgs string
	AptPackages       []string
	JournalPath       string

	// Derived in Finalize.
	ExtraArgs  []string
	StaticRoot string
}

// DefaultAptPackages is everything the stack needs from the OS package
// manager on a clean Debian/Ubuntu host.
var DefaultAptPackages = []string{
	"git",
	"nginx",
	"redis-server",
	"postgresql",
	"postgresql-contrib",
	"python3",
	"python3-venv",
	"python3-dev",
	"build-essential",
	"libpq-dev",
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		AppName:      "webapp",
		Version:      "latest",
		RepoURL:      "https://github.com/example/webapp.git",
		InstallDir:   "/srv/webapp",
		ServiceUser:  "webapp",
		ServiceGroup: "webapp",
		PythonBin:    "python3",
		DBName:       "webapp",
		DBUser:       "webapp",
		DBPassword:   "webapp",
		RedisURL:     "redis://127.0.0.1:6379/1",
		Domain:       "webapp.example.com",
		AdminName:    "admin",
		AdminEmail:   "admin@example.com",
		SocketPath:   "/run/webapp/gunicorn.sock",
		Workers:      3,
		AptPackages:  append([]string(nil), DefaultAptPackages...),
	}
}

// BindFlags attaches every setting to the given FlagSet so Viper can merge
// STACKUP_* environment values over them.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.AppName, "app-name", c.AppName, "Application name used for the unit file, nginx site, and WSGI module default")
	fs.StringVar(&c.Version, "version", c.Version, "Git reference to deploy; 'latest' tracks the remote default branch")
	fs.StringVar(&c.RepoURL, "repo-url", c.RepoURL, "Git remote holding the application source")
	fs.StringVar(&c.InstallDir, "install-dir", c.InstallDir, "Directory the application is installed into")
	fs.StringVar(&c.ServiceUser, "service-user", c.ServiceUser, "Unprivileged OS account the application runs as")
	fs.StringVar(&c.ServiceGroup, "service-group", c.ServiceGroup, "Group of the service account")
	fs.StringVar(&c.PythonBin, "python-bin", c.PythonBin, "Python interpreter used to create the virtualenv")
	fs.StringVar(&c.VenvDir, "venv-dir", c.VenvDir, "Virtualenv directory (defaults to <install-dir>/venv)")
	fs.StringVar(&c.DBName, "db-name", c.DBName, "PostgreSQL database name")
	fs.StringVar(&c.DBUser, "db-user", c.DBUser, "PostgreSQL role name")
	fs.StringVar(&c.DBPassword, "db-password", c.DBPassword, "PostgreSQL role password")
	fs.StringVar(&c.RedisURL, "redis-url", c.RedisURL, "Redis cache connection URL written into the application settings")
	fs.StringVar(&c.Domain, "domain", c.Domain, "Public domain the reverse proxy serves")
	fs.StringSliceVar(&c.AllowedHosts, "allowed-hosts", nil, "ALLOWED_HOSTS entries (defaults to domain,localhost,127.0.0.1)")
	fs.StringVar(&c.AdminName, "admin-name", c.AdminName, "Administrative account name")
	fs.StringVar(&c.AdminEmail, "admin-email", c.AdminEmail, "Administrative account email")
	fs.StringVar(&c.AdminPassword, "admin-password", c.AdminPassword, "Administrative account password; empty skips account creation")
	fs.StringVar(&c.SocketPath, "socket-path", c.SocketPath, "UNIX socket gunicorn binds and nginx proxies to")
	fs.IntVar(&c.Workers, "workers", c.Workers, "gunicorn worker count")
	fs.StringVar(&c.WSGIApp, "wsgi-app", c.WSGIApp, "WSGI application path (defaults to <app-name>.wsgi:application)")
	fs.StringVar(&c.GunicornExtraArgs, "gunicorn-extra-args", c.GunicornExtraArgs, "Extra arguments appended to the gunicorn command line")
	fs.StringSliceVar(&c.AptPackages, "apt-packages", c.AptPackages, "System packages installed before anything else")
	fs.StringVar(&c.JournalPath, "journal-path", c.JournalPath, "SQLite run journal path (defaults to <install-dir>/.stackup/journal.db)")
}

// Finalize resolves derived defaults and validates the result. Call after
// flag and environment merging, before the pipeline starts.
func (c *Config) Finalize() error {
	if strings.TrimSpace(c.AppName) == "" {
		return fmt.Errorf("app name cannot be empty")
	}
	if strings.TrimSpace(c.InstallDir) == "" {
		return fmt.Errorf("install dir cannot be empty")
	}
	if !filepath.IsAbs(c.InstallDir) {
		return fmt.Errorf("install dir %q must be absolute", c.InstallDir)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("version cannot be empty (use 'latest' for the default branch)")
	}
	if c.VenvDir == "" {
		c.VenvDir = filepath.Join(c.InstallDir, "venv")
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.InstallDir, ".stackup", "journal.db")
	}
	if len(c.AllowedHosts) == 0 {
		c.AllowedHosts = []string{c.Domain, "localhost", "127.0.0.1"}
	}
	if c.WSGIApp == "" {
		c.WSGIApp = c.AppName + ".wsgi:application"
	}
	c.StaticRoot = filepath.Join(c.InstallDir, "static")
	extra, err := shellwords.Parse(c.GunicornExtraArgs)
	if err != nil {
		return fmt.Errorf("parse gunicorn extra args %q: %w", c.GunicornExtraArgs, err)
	}
	c.ExtraArgs = extra
	return nil
}

// SocketDir returns the directory holding the gunicorn socket.
func (c *Config) SocketDir() string {
	return filepath.Dir(c.SocketPath)
}

// UnitName returns the systemd unit name for the application service.
func (c *Config) UnitName() string {
	return c.AppName + ".service"
}
