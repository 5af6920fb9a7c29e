// provision.go implements 'stackup provision', 'stackup plan', and
// 'stackup steps'.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/example/stackup/internal/config"
	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/logging"
	"github.com/example/stackup/internal/provision"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type provisionOptions struct {
	dryRun bool
	only   []string
	skip   []string
}

func (o *provisionOptions) bindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.dryRun, "dry-run", false, "Print every command and file write without executing anything")
	fs.StringSliceVar(&o.only, "only", nil, "Run only the named steps (comma-separated, see 'stackup steps')")
	fs.StringSliceVar(&o.skip, "skip", nil, "Skip the named steps")
}

func newProvisionCommand(cfg *config.Config, logLevel *string) *cobra.Command {
	opts := &provisionOptions{}
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the full installation pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cfg, opts, *logLevel)
		},
	}
	opts.bindFlags(cmd.Flags())
	return cmd
}

func newPlanCommand(cfg *config.Config, logLevel *string) *cobra.Command {
	opts := &provisionOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print every command a provisioning run would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dryRun = true
			return runProvision(cmd.Context(), cfg, opts, *logLevel)
		},
	}
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "Plan only the named steps")
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "Skip the named steps")
	return cmd
}

func newStepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List pipeline steps in execution order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			bold := color.New(color.Bold)
			for i, s := range provision.Steps() {
				bold.Printf("%2d. %s", i+1, s.Name)
				fmt.Printf("  %s\n", s.Desc)
			}
		},
	}
}

func runProvision(ctx context.Context, cfg *config.Config, opts *provisionOptions, logLevel string) error {
	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := cfg.Finalize(); err != nil {
		return err
	}
	if !opts.dryRun && os.Geteuid() != 0 {
		return fmt.Errorf("provisioning requires root (re-run with sudo, or use --dry-run)")
	}
	runner := execx.System()
	if opts.dryRun {
		runner = execx.DryRun(os.Stdout)
	}
	deps := provision.Deps{Cfg: cfg, Runner: runner, Log: log, DryRun: opts.dryRun}
	return provision.Run(ctx, deps, provision.Options{Only: opts.only, Skip: opts.skip})
}
