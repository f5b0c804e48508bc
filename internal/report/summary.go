package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
)

// Rule is the separator line between output sections.
func Rule() string { return strings.Repeat("-", 60) }

// Summary aggregates the execution records of one scheduling run.
type Summary struct {
	RunID    string
	Playbook string
	Started  time.Time
	Finished time.Time
	Records  []model.ExecutionRecord
}

func NewSummary(runID, playbook string, started, finished time.Time, records []model.ExecutionRecord) *Summary {
	return &Summary{
		RunID:    runID,
		Playbook: playbook,
		Started:  started,
		Finished: finished,
		Records:  records,
	}
}

// WallTime is the elapsed time of the whole run, submission to drain.
func (s *Summary) WallTime() time.Duration { return s.Finished.Sub(s.Started) }

// Succeeded returns the records of jobs that ran and exited zero, in
// index order.
func (s *Summary) Succeeded() []model.ExecutionRecord { return s.byStatus(model.StatusSucceeded) }

// Failed returns the records of jobs that ran and failed, in index order.
func (s *Summary) Failed() []model.ExecutionRecord { return s.byStatus(model.StatusFailed) }

// NotRun returns the records of jobs that never started, in index order.
func (s *Summary) NotRun() []model.ExecutionRecord { return s.byStatus(model.StatusNotRun) }

func (s *Summary) byStatus(status model.JobStatus) []model.ExecutionRecord {
	var out []model.ExecutionRecord
	for _, rec := range s.Records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// ExitCode is zero only when every job ran and succeeded.
func (s *Summary) ExitCode() int {
	if len(s.Failed()) > 0 || len(s.NotRun()) > 0 {
		return 1
	}
	return 0
}

// Print writes the summary block: a rule, the succeeded and failed jobs
// with their durations, the wall time, and the all-clear line when
// nothing failed.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, Rule())

	succeeded := s.Succeeded()
	if len(succeeded) > 0 {
		fmt.Fprintln(w, color.GreenString("Succeeded:"))
		for _, rec := range succeeded {
			fmt.Fprintln(w, color.GreenString("- %s (%.2fs)", rec.Label, rec.Duration.Seconds()))
		}
	}

	failed := append(s.Failed(), s.NotRun()...)
	if len(failed) > 0 {
		fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprint("Failures:"))
		for _, rec := range failed {
			label := rec.Label
			if rec.Status == model.StatusNotRun {
				label += " (not run)"
			}
			fmt.Fprintln(w, color.RedString("- %s rc=%d", label, rec.ExitCode))
		}
	}

	fmt.Fprintln(w, color.BlueString("Total wall time: %.2fs", s.WallTime().Seconds()))

	if len(failed) == 0 {
		fmt.Fprintln(w, color.GreenString("All role/host tasks completed successfully."))
	}
}

// PrintPlanned lists every registered job with its merged vars, in index
// order, followed by a rule.
func PrintPlanned(w io.Writer, reg *registry.Registry) {
	fmt.Fprintln(w, "Planned parallel tasks:")
	for _, e := range reg.Entries() {
		fmt.Fprintf(w, "- %s vars=%v\n", e.DisplayLabel, e.Job.Vars)
	}
	fmt.Fprintln(w, Rule())
}

// PrintMissingTargets warns about declaration patterns that matched no
// registered job.
func PrintMissingTargets(w io.Writer, patterns []string) {
	if len(patterns) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(color.YellowString("Warning: dependency targets not present in this run:"))
	for _, p := range patterns {
		b.WriteString("\n- " + p)
	}
	fmt.Fprintln(w, b.String())
}

// PrintMissingDependencies reports the fatal block for prerequisite
// patterns that resolve to no job.
func PrintMissingDependencies(w io.Writer, depsPath string, patterns []string) {
	var b strings.Builder
	b.WriteString(color.New(color.FgRed, color.Bold).Sprintf("Dependencies not found (deps: %s):", depsPath))
	for _, p := range patterns {
		b.WriteString("\n- " + p)
	}
	fmt.Fprintln(w, b.String())
}
