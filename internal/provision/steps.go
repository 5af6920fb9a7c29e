// steps.go defines the installation sequence. Order matters: later steps
// reference artifacts created by earlier ones.
package provision

import (
	"context"

	"github.com/example/stackup/internal/appcmd"
	"github.com/example/stackup/internal/appconfig"
	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/nginxsite"
	"github.com/example/stackup/internal/perms"
	"github.com/example/stackup/internal/pkgmgr"
	"github.com/example/stackup/internal/postgres"
	"github.com/example/stackup/internal/pyenv"
	"github.com/example/stackup/internal/source"
	"github.com/example/stackup/internal/systemdunit"
	"github.com/example/stackup/internal/sysuser"
)

// Steps returns the full pipeline in execution order.
func Steps() []Step {
	return []Step{
		{
			Name: "packages",
			Desc: "Install system dependencies via apt-get",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				if err := pkgmgr.Install(ctx, d.Runner, d.Cfg.AptPackages); err != nil {
					return "", err
				}
				return StatusOK, nil
			},
		},
		{
			Name: "database",
			Desc: "Start PostgreSQL and ensure role and database exist",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				if err := postgres.EnsureService(ctx, d.Runner); err != nil {
					return "", err
				}
				roleStatus, err := postgres.EnsureRole(ctx, d.Runner, d.Cfg.DBUser, d.Cfg.DBPassword)
				if err != nil {
					return "", err
				}
				dbStatus, err := postgres.EnsureDatabase(ctx, d.Runner, d.Cfg.DBName, d.Cfg.DBUser)
				if err != nil {
					return "", err
				}
				if roleStatus == postgres.StatusCreated || dbStatus == postgres.StatusCreated {
					return StatusCreated, nil
				}
				return StatusExists, nil
			},
		},
		{
			Name: "account",
			Desc: "Ensure the unprivileged service account exists",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				status, err := sysuser.Ensure(ctx, d.Runner, d.Cfg.ServiceUser, d.Cfg.ServiceGroup, d.Cfg.InstallDir)
				if err != nil {
					return "", err
				}
				return Status(status), nil
			},
		},
		{
			Name: "source",
			Desc: "Clone or update the application source tree",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				status, err := source.Sync(ctx, d.Runner, d.Cfg.RepoURL, d.Cfg.InstallDir, d.Cfg.Version)
				if err != nil {
					return "", err
				}
				return Status(status), nil
			},
		},
		{
			Name: "venv",
			Desc: "Create the virtualenv and install dependencies",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				status, err := pyenv.Ensure(ctx, d.Runner, d.Cfg.PythonBin, d.Cfg.VenvDir, d.Cfg.InstallDir)
				if err != nil {
					return "", err
				}
				return Status(status), nil
			},
		},
		{
			Name: "config",
			Desc: "Write application settings (managed block, generated secret)",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				status, err := appconfig.Ensure(d.Runner, d.Cfg.InstallDir, appconfig.Settings{
					AllowedHosts: d.Cfg.AllowedHosts,
					DBName:       d.Cfg.DBName,
					DBUser:       d.Cfg.DBUser,
					DBPassword:   d.Cfg.DBPassword,
					RedisURL:     d.Cfg.RedisURL,
					StaticRoot:   d.Cfg.StaticRoot,
				})
				if err != nil {
					return "", err
				}
				return Status(status), nil
			},
		},
		{
			Name: "migrate",
			Desc: "Apply schema migrations and collect static assets",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				if err := appcmd.Migrate(ctx, d.Runner, d.Cfg.VenvDir, d.Cfg.InstallDir); err != nil {
					return "", err
				}
				if err := appcmd.CollectStatic(ctx, d.Runner, d.Cfg.VenvDir, d.Cfg.InstallDir); err != nil {
					return "", err
				}
				return StatusOK, nil
			},
		},
		{
			Name: "admin",
			Desc: "Create the administrative account if absent",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				status, err := appcmd.EnsureAdmin(ctx, d.Runner, d.Cfg.VenvDir, d.Cfg.InstallDir, appcmd.Admin{
					Name:     d.Cfg.AdminName,
					Email:    d.Cfg.AdminEmail,
					Password: d.Cfg.AdminPassword,
				})
				if err != nil {
					return "", err
				}
				if status == appcmd.StatusSkipped {
					d.Log.Warnw("admin password empty, skipping account creation", "admin", d.Cfg.AdminName)
				}
				return Status(status), nil
			},
		},
		{
			Name: "service",
			Desc: "Install and start the gunicorn systemd unit",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				err := systemdunit.Install(ctx, d.Runner, systemdunit.Unit{
					App:              d.Cfg.AppName,
					User:             d.Cfg.ServiceUser,
					Group:            d.Cfg.ServiceGroup,
					WorkingDirectory: d.Cfg.InstallDir,
					VenvDir:          d.Cfg.VenvDir,
					SocketPath:       d.Cfg.SocketPath,
					Workers:          d.Cfg.Workers,
					WSGIApp:          d.Cfg.WSGIApp,
					ExtraArgs:        d.Cfg.ExtraArgs,
				})
				if err != nil {
					return "", err
				}
				return StatusOK, nil
			},
		},
		{
			Name: "proxy",
			Desc: "Install and enable the nginx site",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				err := nginxsite.Install(ctx, d.Runner, nginxsite.Site{
					App:        d.Cfg.AppName,
					Domain:     d.Cfg.Domain,
					SocketPath: d.Cfg.SocketPath,
					StaticRoot: d.Cfg.StaticRoot,
				})
				if err != nil {
					return "", err
				}
				return StatusOK, nil
			},
		},
		{
			Name: "permissions",
			Desc: "Normalize ownership of the install and socket directories",
			Run: func(ctx context.Context, d Deps) (Status, error) {
				mkdir := execx.Cmd{Name: "mkdir", Args: []string{"-p", d.Cfg.SocketDir()}}
				if err := d.Runner.Run(ctx, mkdir); err != nil {
					return "", err
				}
				err := perms.Fix(ctx, d.Runner, d.Cfg.ServiceUser, d.Cfg.ServiceGroup, !d.DryRun,
					d.Cfg.InstallDir, d.Cfg.SocketDir())
				if err != nil {
					return "", err
				}
				return StatusOK, nil
			},
		},
	}
}
