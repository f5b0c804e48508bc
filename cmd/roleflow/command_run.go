package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sourceplane/roleflow/internal/graph"
	"github.com/sourceplane/roleflow/internal/history"
	"github.com/sourceplane/roleflow/internal/loader"
	"github.com/sourceplane/roleflow/internal/logsink"
	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
	"github.com/sourceplane/roleflow/internal/report"
	"github.com/sourceplane/roleflow/internal/runner"
	"github.com/sourceplane/roleflow/internal/scheduler"
)

// rolesRoot is where roles live, relative to the working directory,
// matching ansible's own layout convention.
const rolesRoot = "roles"

var runCmd = &cobra.Command{
	Use:   "run PLAYBOOK",
	Short: "Run playbook roles as role/host jobs",
	Long:  "Run every role/host pair of the playbook as its own job. With --parallel the jobs run concurrently under the declared dependency graph; otherwise the whole playbook runs in one ansible-playbook invocation.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runSchedule(args[0])
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func registerRunCommand(root *cobra.Command) {
	root.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "Run each role/host pair as its own concurrent job")
	runCmd.Flags().IntVar(&maxParallel, "max-parallel", 5, "Upper bound on concurrently running jobs")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate jobs instead of invoking ansible-playbook (implies --parallel)")
	runCmd.Flags().StringVar(&logDir, "log-dir", "logs", "Directory for per-job logs")
	runCmd.Flags().StringVar(&historyFile, "history", "", "SQLite database recording run outcomes (empty disables)")
}

func runSchedule(playbookPath string) (int, error) {
	configPath, inventoryPath := runner.FindConfig(".")

	sink, err := logsink.New(logDir, rolesRoot)
	if err != nil {
		return 0, err
	}

	plays, err := loader.LoadPlaybook(playbookPath)
	if err != nil {
		return 0, err
	}
	jobs := loader.CollectJobs(plays)

	depsPath := depsFile
	if depsPath == "" {
		depsPath = loader.DefaultDepsPath(playbookPath)
	}
	decls := loader.LoadDeclarations(depsPath)

	if missing := loader.MissingRoles(jobs, rolesRoot); len(missing) > 0 {
		var b strings.Builder
		b.WriteString("Missing roles:")
		for _, role := range missing {
			b.WriteString("\n- " + role)
		}
		fmt.Fprintln(os.Stderr, b.String())
		return 1, nil
	}

	if len(jobs) == 0 {
		fmt.Println("No roles found in playbook; nothing to run.")
		return 0, nil
	}

	if dryRun {
		parallel = true
	}

	if !parallel {
		return runner.NewRunner(configPath, inventoryPath, os.Stdout, os.Stderr).RunPlaybook(playbookPath)
	}

	return runScheduleParallel(playbookPath, jobs, decls, depsPath, configPath, inventoryPath, sink)
}

func runScheduleParallel(playbookPath string, jobs []model.Job, decls []model.Declaration, depsPath, configPath, inventoryPath string, sink *logsink.Sink) (int, error) {
	reg := registry.New(jobs)
	report.PrintPlanned(os.Stdout, reg)

	g, err := graph.Build(reg, decls)
	if g != nil && len(g.MissingTargets) > 0 {
		report.PrintMissingTargets(os.Stderr, g.MissingTargets)
		fmt.Println(report.Rule())
	}
	if err != nil {
		var missing *graph.MissingError
		if errors.As(err, &missing) {
			report.PrintMissingDependencies(os.Stderr, depsPath, missing.Patterns)
			fmt.Println(report.Rule())
			return 1, nil
		}
		return 0, err
	}

	var engine runner.Engine = &runner.AnsibleEngine{
		ConfigPath:    configPath,
		InventoryPath: inventoryPath,
		RolesRoot:     rolesRoot,
	}
	if dryRun {
		engine = &runner.DryEngine{Delay: time.Second}
	}

	sched := &scheduler.Scheduler{
		Registry:    reg,
		Graph:       g,
		Engine:      engine,
		Sink:        sink,
		MaxParallel: maxParallel,
		Out:         os.Stdout,
		Err:         os.Stderr,
	}

	started := time.Now()
	records, err := sched.Run()
	if err != nil {
		if errors.Is(err, scheduler.ErrNoReadyJobs) {
			fmt.Fprintln(os.Stderr, "Dependency graph has cycles or no starting nodes.")
			return 1, nil
		}
		return 0, err
	}

	sum := report.NewSummary(uuid.NewString(), playbookPath, started, time.Now(), records)
	sum.Print(os.Stdout)

	if historyFile != "" {
		recordHistory(sum, reg)
	}

	return sum.ExitCode(), nil
}

// recordHistory persists the run outcome. Failures here only warn; the
// run's own result stands.
func recordHistory(sum *report.Summary, reg *registry.Registry) {
	store, err := history.Open(historyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.YellowString("Warning: failed to record run history: %v", err))
		return
	}
	defer store.Close()

	if err := store.RecordRun(context.Background(), sum, reg); err != nil {
		fmt.Fprintln(os.Stderr, color.YellowString("Warning: failed to record run history: %v", err))
	}
}
