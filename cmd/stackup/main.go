// main.go bootstraps stackup: it builds the root Cobra command, wires Viper
// environment binding, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/example/stackup/internal/config"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.New()
	opts := &provisionOptions{}
	logLevel := "info"
	cmd := &cobra.Command{
		Use:           "stackup",
		Short:         "Provision a web application stack on a single host",
		Long: "stackup installs and wires an application server, PostgreSQL, Redis, and nginx\n" +
			"on one host by driving the OS package manager, database CLIs, git, the Python\n" +
			"toolchain, systemd, and nginx. Every setting is an STACKUP_* environment\n" +
			"variable with a sensible default, so a bare 'stackup' on a clean host yields a\n" +
			"reachable site on port 80.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cfg, opts, logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for stackup output (debug, info, warn, error)")
	cfg.BindFlags(cmd.PersistentFlags())
	opts.bindFlags(cmd.Flags())

	provisionCmd := newProvisionCommand(cfg, &logLevel)
	planCmd := newPlanCommand(cfg, &logLevel)
	stepsCmd := newStepsCommand()
	doctorCmd := newDoctorCommand(cfg)
	cmd.AddCommand(
		provisionCmd,
		planCmd,
		stepsCmd,
		doctorCmd,
		newVersionCommand(),
	)
	cmd.Example = `  # Provision with defaults on a clean host
  stackup

  # Pin a release and a custom domain
  STACKUP_VERSION=v2.1.0 STACKUP_DOMAIN=app.example.org stackup

  # Show what would run without touching the host
  stackup plan`
	bindViper(cmd, provisionCmd, planCmd, doctorCmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("STACKUP")
	v.AutomaticEnv()
	configFile := os.Getenv("STACKUP_CONFIG")
	configureConfigFile(v, configFile)

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "stackup"))
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "stackup"))
		add(filepath.Join(home, ".stackup"))
	}
	add("/etc/stackup")
	return dirs
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = fmt.Sprintf("%s\nHint: the run was interrupted; completed steps are left in place, re-run to continue.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
