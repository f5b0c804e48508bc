package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourceplane/roleflow/internal/graph"
	"github.com/sourceplane/roleflow/internal/loader"
	"github.com/sourceplane/roleflow/internal/registry"
	"github.com/sourceplane/roleflow/internal/report"
)

var planCmd = &cobra.Command{
	Use:   "plan PLAYBOOK",
	Short: "Resolve the dependency graph without launching anything",
	Long:  "Load the playbook and dependency declarations, build the execution graph, and print the planned jobs, the resolved edges and a viable launch order.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := showPlan(args[0])
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func registerPlanCommand(root *cobra.Command) {
	root.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the resolved plan to a file (json or yaml by extension)")
}

func showPlan(playbookPath string) (int, error) {
	plays, err := loader.LoadPlaybook(playbookPath)
	if err != nil {
		return 0, err
	}
	jobs := loader.CollectJobs(plays)
	if len(jobs) == 0 {
		fmt.Println("No roles found in playbook; nothing to plan.")
		return 0, nil
	}

	depsPath := depsFile
	if depsPath == "" {
		depsPath = loader.DefaultDepsPath(playbookPath)
	}
	decls := loader.LoadDeclarations(depsPath)

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

	printEdges(reg, g)

	order, ok := g.Ordered()
	if !ok {
		fmt.Fprintln(os.Stderr, "Dependency graph has cycles or no starting nodes.")
		return 1, nil
	}
	fmt.Println("Launch order:")
	for i, idx := range order {
		fmt.Printf("%2d. %s\n", i+1, reg.Entry(idx).DisplayLabel)
	}

	if outputFile != "" {
		if err := report.WritePlan(report.NewPlan(playbookPath, reg, g), outputFile); err != nil {
			return 0, err
		}
		fmt.Printf("✓ Plan written to %s\n", outputFile)
	}

	return 0, nil
}

func printEdges(reg *registry.Registry, g *graph.Graph) {
	count := 0
	for _, targets := range g.Edges {
		count += len(targets)
	}
	if count == 0 {
		fmt.Println("No dependency edges; all jobs start ready.")
		return
	}

	fmt.Printf("Dependency edges (%d):\n", count)
	for prereq, targets := range g.Edges {
		for _, target := range targets {
			fmt.Printf("- %s -> %s\n", reg.Entry(prereq).DisplayLabel, reg.Entry(target).DisplayLabel)
		}
	}
}
