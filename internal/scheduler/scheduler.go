package scheduler

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sourceplane/roleflow/internal/graph"
	"github.com/sourceplane/roleflow/internal/logsink"
	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
	"github.com/sourceplane/roleflow/internal/runner"
)

// ErrNoReadyJobs means no job has an in-degree of zero: the declarations
// form a cycle over every job, so nothing can ever start.
var ErrNoReadyJobs = errors.New("dependency graph has cycles or no starting nodes")

// Scheduler drains a dependency graph with bounded parallelism. The
// control loop in Run owns every piece of mutable state; job goroutines
// only run the engine and report back on a channel.
type Scheduler struct {
	Registry    *registry.Registry
	Graph       *graph.Graph
	Engine      runner.Engine
	Sink        *logsink.Sink
	MaxParallel int
	Out         io.Writer
	Err         io.Writer
}

// completion is what a job goroutine hands back to the control loop.
type completion struct {
	index  int
	exit   int
	output string
	err    error
}

// Run launches jobs in index order as their prerequisites complete and
// returns one record per registered job, indexed by job. The first failure
// stops new submissions; jobs already in flight drain normally, and
// everything never launched is recorded as not run with a synthetic
// failure code.
func (s *Scheduler) Run() ([]model.ExecutionRecord, error) {
	out, errW := s.Out, s.Err
	if out == nil {
		out = io.Discard
	}
	if errW == nil {
		errW = io.Discard
	}

	n := s.Registry.Len()
	if n == 0 {
		return []model.ExecutionRecord{}, nil
	}

	// The graph stays read-only; the countdown happens on a private copy.
	inDegree := append([]int(nil), s.Graph.InDegree...)

	var ready []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	if len(ready) == 0 {
		return nil, ErrNoReadyJobs
	}

	workers := s.MaxParallel
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	fmt.Fprintf(out, "Launching up to %d tasks in parallel. Logs dir: %s\n", workers, s.Sink.Dir)

	records := make([]model.ExecutionRecord, n)
	started := make([]time.Time, n)
	running := make(map[int]bool, workers)
	done := make(chan completion, n)
	inFlight := 0
	stop := false

	for len(ready) > 0 || inFlight > 0 {
		for len(ready) > 0 && inFlight < workers && !stop {
			idx := ready[0]
			ready = ready[1:]

			entry := s.Registry.Entry(idx)
			started[idx] = time.Now()
			running[idx] = true
			inFlight++

			go func(e registry.Entry) {
				exit, output, err := s.Engine.Run(e.Job)
				done <- completion{index: e.Index, exit: exit, output: output, err: err}
			}(entry)
		}

		printRunning(out, s.Registry, running)

		if inFlight == 0 {
			break
		}

		c := <-done
		inFlight--
		delete(running, c.index)

		s.finish(&records[c.index], c, started[c.index], out, errW)
		if records[c.index].Status == model.StatusFailed {
			stop = true
		}

		for _, dependent := range s.Graph.Edges[c.index] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	for i := range records {
		if records[i].Status == "" {
			records[i] = model.ExecutionRecord{
				Index:    i,
				Label:    s.Registry.Entry(i).DisplayLabel,
				Status:   model.StatusNotRun,
				ExitCode: 1,
			}
		}
	}

	return records, nil
}

// finish turns a completion into an execution record, writes the job log
// and reports failures as they happen. Clean non-zero exits go to out with
// the log path; engine faults go to errW.
func (s *Scheduler) finish(rec *model.ExecutionRecord, c completion, startedAt time.Time, out, errW io.Writer) {
	entry := s.Registry.Entry(c.index)
	finished := time.Now()

	*rec = model.ExecutionRecord{
		Index:    c.index,
		Label:    entry.DisplayLabel,
		ExitCode: c.exit,
		Started:  startedAt,
		Finished: finished,
		Duration: finished.Sub(startedAt),
	}

	output := c.output
	switch {
	case c.err != nil:
		rec.Status = model.StatusFailed
		if rec.ExitCode == 0 {
			rec.ExitCode = 1
		}
		rec.Fault = c.err.Error()
		output += fmt.Sprintf("\nEngine fault: %v\n", c.err)
	case c.exit != 0:
		rec.Status = model.StatusFailed
	default:
		rec.Status = model.StatusSucceeded
	}

	logPath, logErr := s.Sink.Write(entry, output)
	rec.LogPath = logPath
	if logErr != nil {
		fmt.Fprintln(errW, color.YellowString("Warning: %v", logErr))
	}

	if rec.Status != model.StatusFailed {
		return
	}
	if rec.Fault != "" {
		detail := color.New(color.FgRed, color.Bold).Sprintf("error %s", rec.Fault)
		fmt.Fprintf(errW, "%s: %s\n", rec.Label, detail)
	} else {
		status := color.RedString("failed (rc=%d)", rec.ExitCode)
		fmt.Fprintf(out, "%s: %s (log: %s)\n", rec.Label, status, logPath)
	}
}

func printRunning(out io.Writer, reg *registry.Registry, running map[int]bool) {
	if len(running) == 0 {
		fmt.Fprintln(out, "Running: none")
		return
	}

	indices := make([]int, 0, len(running))
	for idx := range running {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	labels := make([]string, 0, len(indices))
	for _, idx := range indices {
		labels = append(labels, reg.Entry(idx).DisplayLabel)
	}
	fmt.Fprintf(out, "Running (%d): %s\n", len(running), strings.Join(labels, ", "))
}
