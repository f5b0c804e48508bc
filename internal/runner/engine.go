package runner

import (
	"fmt"
	"time"

	"github.com/sourceplane/roleflow/internal/model"
)

// Engine executes a single job and reports its exit code and combined
// output. Implementations must be safe for concurrent use: the scheduler
// calls Run from one goroutine per in-flight job.
type Engine interface {
	Run(job model.Job) (exit int, output string, err error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(job model.Job) (int, string, error)

func (f EngineFunc) Run(job model.Job) (int, string, error) { return f(job) }

// DryEngine pretends to run jobs, succeeding after a fixed delay. It keeps
// scheduling behavior observable without touching any host.
type DryEngine struct {
	Delay time.Duration
}

func (e *DryEngine) Run(model.Job) (int, string, error) {
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}
	return 0, fmt.Sprintf("Dry run: task not executed, simulated %s delay.\n", e.Delay), nil
}
