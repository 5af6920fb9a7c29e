// Package provision sequences the installation steps: strictly sequential,
// fail-fast, no retries, no rollback. The only state consulted is whether
// the artifacts each step manages already exist.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/example/stackup/internal/config"
	"github.com/example/stackup/internal/execx"
	"github.com/example/stackup/internal/journal"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Status is the outcome of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
	StatusSkipped Status = "skipped"
)

// Deps carries everything a step needs. Steps read Cfg, never mutate it.
type Deps struct {
	Cfg    *config.Config
	Runner execx.Runner
	Log    *zap.SugaredLogger
	DryRun bool
}

// Step is one named stage of the pipeline.
type Step struct {
	Name string
	Desc string
	Run  func(ctx context.Context, d Deps) (Status, error)
}

// Options selects which steps run.
type Options struct {
	Only []string
	Skip []string
}

var (
	bannerColor  = color.New(color.FgCyan, color.Bold)
	createdColor = color.New(color.FgGreen)
	existsColor  = color.New(color.FgYellow)
	skippedColor = color.New(color.FgYellow)
)

// Run executes the selected steps in order, aborting on the first failure.
// Outcomes are appended to the SQLite journal unless this is a dry run; a
// broken journal is logged and ignored so it can never fail provisioning.
func Run(ctx context.Context, d Deps, opts Options) error {
	steps, err := selectSteps(Steps(), opts)
	if err != nil {
		return err
	}

	var (
		j     *journal.Journal
		runID int64
	)
	if !d.DryRun {
		j, err = journal.Open(d.Cfg.JournalPath)
		if err != nil {
			d.Log.Warnw("run journal unavailable", "path", d.Cfg.JournalPath, "error", err)
		} else {
			defer j.Close()
			if runID, err = j.Begin(ctx); err != nil {
				d.Log.Warnw("run journal unavailable", "error", err)
				j.Close()
				j = nil
			}
		}
	}

	for i, step := range steps {
		bannerColor.Printf("==> [%d/%d] %s\n", i+1, len(steps), step.Name)
		start := time.Now()
		status, err := step.Run(ctx, d)
		elapsed := time.Since(start)
		if err != nil {
			recordStep(ctx, d, j, runID, journal.StepRecord{
				Name: step.Name, Status: "failed", Duration: elapsed, Error: err.Error(),
			})
			finishRun(ctx, d, j, runID, "failed")
			return errors.Wrapf(err, "step %s", step.Name)
		}
		printStatus(step.Name, status, elapsed)
		recordStep(ctx, d, j, runID, journal.StepRecord{
			Name: step.Name, Status: string(status), Duration: elapsed,
		})
	}
	finishRun(ctx, d, j, runID, "succeeded")
	d.Log.Infow("provisioning complete", "steps", len(steps), "domain", d.Cfg.Domain)
	return nil
}

func printStatus(name string, status Status, elapsed time.Duration) {
	switch status {
	case StatusCreated:
		createdColor.Printf("    %s: created (%s)\n", name, elapsed.Round(time.Millisecond))
	case StatusExists:
		existsColor.Printf("    %s: exists (%s)\n", name, elapsed.Round(time.Millisecond))
	case StatusSkipped:
		skippedColor.Printf("    %s: skipped\n", name)
	default:
		fmt.Printf("    %s: done (%s)\n", name, elapsed.Round(time.Millisecond))
	}
}

func recordStep(ctx context.Context, d Deps, j *journal.Journal, runID int64, rec journal.StepRecord) {
	if j == nil {
		return
	}
	if err := j.RecordStep(ctx, runID, rec); err != nil {
		d.Log.Warnw("journal write failed", "step", rec.Name, "error", err)
	}
}

func finishRun(ctx context.Context, d Deps, j *journal.Journal, runID int64, status string) {
	if j == nil {
		return
	}
	if err := j.Finish(ctx, runID, status); err != nil {
		d.Log.Warnw("journal write failed", "error", err)
	}
}

func selectSteps(all []Step, opts Options) ([]Step, error) {
	known := make(map[string]struct{}, len(all))
	for _, s := range all {
		known[s.Name] = struct{}{}
	}
	for _, name := range append(append([]string(nil), opts.Only...), opts.Skip...) {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown step %q (see 'stackup steps')", name)
		}
	}
	only := toSet(opts.Only)
	skip := toSet(opts.Skip)
	var out []Step
	for _, s := range all {
		if len(only) > 0 {
			if _, ok := only[s.Name]; !ok {
				continue
			}
		}
		if _, ok := skip[s.Name]; ok {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no steps selected")
	}
	return out, nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
