// doctor.go implements 'stackup doctor', a read-only preflight that checks
// host prerequisites concurrently and reports the last journaled run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/example/stackup/internal/config"
	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/journal"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type doctorCheck struct {
	Name   string `yaml:"name"`
	OK     bool   `yaml:"ok"`
	Detail string `yaml:"detail,omitempty"`
}

type doctorReport struct {
	Checks  []doctorCheck       `yaml:"checks"`
	LastRun *journal.RunSummary `yaml:"last_run,omitempty"`
}

func newDoctorCommand(cfg *config.Config) *cobra.Command {
	output := "text"
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check host prerequisites without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Finalize(); err != nil {
				return err
			}
			report := collectReport(cmd.Context(), cfg)
			switch output {
			case "yaml":
				data, err := yaml.Marshal(report)
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				fmt.Print(string(data))
			case "text":
				printReport(report)
			default:
				return fmt.Errorf("unknown output format %q (expected text or yaml)", output)
			}
			for _, c := range report.Checks {
				if !c.OK {
					return fmt.Errorf("%d of %d checks failed", countFailed(report.Checks), len(report.Checks))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", output, "Report format (text or yaml)")
	return cmd
}

// collectReport runs every check concurrently. Checks are read-only, so this
// is the one place stackup fans out.
func collectReport(ctx context.Context, cfg *config.Config) doctorReport {
	var (
		mu     sync.Mutex
		checks []doctorCheck
	)
	add := func(c doctorCheck) {
		mu.Lock()
		defer mu.Unlock()
		checks = append(checks, c)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, bin := range []string{"apt-get", "git", "psql", "sudo", "systemctl", "nginx", cfg.PythonBin} {
		bin := bin
		g.Go(func() error {
			path, err := exec.LookPath(bin)
			if err != nil {
				add(doctorCheck{Name: "binary " + bin, Detail: "not on PATH"})
				return nil
			}
			add(doctorCheck{Name: "binary " + bin, OK: true, Detail: path})
			return nil
		})
	}
	runner := execx.System()
	for _, svc := range []string{"postgresql", "redis-server", "nginx"} {
		svc := svc
		g.Go(func() error {
			out, err := runner.Output(ctx, execx.Cmd{Name: "systemctl", Args: []string{"is-active", svc}})
			if err != nil {
				add(doctorCheck{Name: "service " + svc, Detail: "inactive"})
				return nil
			}
			add(doctorCheck{Name: "service " + svc, OK: true, Detail: out})
			return nil
		})
	}
	var lastRun *journal.RunSummary
	g.Go(func() error {
		if _, err := os.Stat(cfg.JournalPath); err != nil {
			add(doctorCheck{Name: "journal", OK: true, Detail: "no runs recorded"})
			return nil
		}
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			add(doctorCheck{Name: "journal", Detail: err.Error()})
			return nil
		}
		defer j.Close()
		run, err := j.LastRun(ctx)
		if err != nil {
			add(doctorCheck{Name: "journal", Detail: err.Error()})
			return nil
		}
		lastRun = run
		add(doctorCheck{Name: "journal", OK: true, Detail: cfg.JournalPath})
		return nil
	})
	_ = g.Wait()

	sort.Slice(checks, func(i, k int) bool { return checks[i].Name < checks[k].Name })
	return doctorReport{Checks: checks, LastRun: lastRun}
}

func printReport(report doctorReport) {
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	for _, c := range report.Checks {
		if c.OK {
			pass.Printf("  ok  ")
		} else {
			fail.Printf("FAIL  ")
		}
		fmt.Printf("%-24s %s\n", c.Name, c.Detail)
	}
	if report.LastRun != nil {
		fmt.Printf("\nlast run: #%d %s (started %s)\n",
			report.LastRun.ID, report.LastRun.Status, report.LastRun.StartedAt.Format("2006-01-02 15:04:05 MST"))
		for _, s := range report.LastRun.Steps {
			fmt.Printf("  %-14s %s\n", s.Name, s.Status)
		}
	}
}

func countFailed(checks []doctorCheck) int {
	n := 0
	for _, c := range checks {
		if !c.OK {
			n++
		}
	}
	return n
}
