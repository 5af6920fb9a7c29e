package config

import "testing"

func TestFinalizeDerivedDefaults(t *testing.T) {
	c := New()
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if c.VenvDir != "/srv/webapp/venv" {
		t.Fatalf("unexpected venv dir: %s", c.VenvDir)
	}
	if c.JournalPath != "/srv/webapp/.stackup/journal.db" {
		t.Fatalf("unexpected journal path: %s", c.JournalPath)
	}
	if c.WSGIApp != "webapp.wsgi:application" {
		t.Fatalf("unexpected wsgi app: %s", c.WSGIApp)
	}
	if len(c.AllowedHosts) != 3 || c.AllowedHosts[0] != "webapp.example.com" {
		t.Fatalf("unexpected allowed hosts: %v", c.AllowedHosts)
	}
	if c.SocketDir() != "/run/webapp" {
		t.Fatalf("unexpected socket dir: %s", c.SocketDir())
	}
	if c.UnitName() != "webapp.service" {
		t.Fatalf("unexpected unit name: %s", c.UnitName())
	}
}

func TestFinalizeRespectsExplicitValues(t *testing.T) {
	c := New()
	c.VenvDir = "/opt/venv"
	c.AllowedHosts = []string{"example.org"}
	c.WSGIApp = "site.wsgi:app"
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if c.VenvDir != "/opt/venv" {
		t.Fatalf("explicit venv dir overridden: %s", c.VenvDir)
	}
	if len(c.AllowedHosts) != 1 || c.AllowedHosts[0] != "example.org" {
		t.Fatalf("explicit allowed hosts overridden: %v", c.AllowedHosts)
	}
	if c.WSGIApp != "site.wsgi:app" {
		t.Fatalf("explicit wsgi app overridden: %s", c.WSGIApp)
	}
}

func TestFinalizeParsesExtraArgs(t *testing.T) {
	c := New()
	c.GunicornExtraArgs = `--timeout 120 --log-level "debug"`
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	want := []string{"--timeout", "120", "--log-level", "debug"}
	if len(c.ExtraArgs) != len(want) {
		t.Fatalf("expected %d args, got %v", len(want), c.ExtraArgs)
	}
	for i := range want {
		if c.ExtraArgs[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, c.ExtraArgs[i], want[i])
		}
	}
}

func TestFinalizeRejectsBadInput(t *testing.T) {
	cases := map[string]func(*Config){
		"relative install dir": func(c *Config) { c.InstallDir = "srv/webapp" },
		"zero workers":         func(c *Config) { c.Workers = 0 },
		"empty version":        func(c *Config) { c.Version = " " },
		"empty app name":       func(c *Config) { c.AppName = "" },
		"unbalanced quotes":    func(c *Config) { c.GunicornExtraArgs = `--name "web` },
	}
	for name, mutate := range cases {
		c := New()
		mutate(c)
		if err := c.Finalize(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
