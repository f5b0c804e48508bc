package main

import "github.com/spf13/cobra"

var (
	depsFile    string
	parallel    bool
	maxParallel int
	dryRun      bool
	logDir      string
	historyFile string
	outputFile  string
)

var rootCmd = &cobra.Command{
	Use:   "roleflow",
	Short: "Role scheduler: playbook → dependency-aware parallel role/host runs",
	Long:  "roleflow splits an Ansible playbook into role/host jobs and runs them concurrently, honoring a declared dependency graph with bounded parallelism.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&depsFile, "deps-file", "", "Dependency declarations file (default PLAYBOOK.deps.yml)")

	registerRunCommand(rootCmd)
	registerPlanCommand(rootCmd)
	registerValidateCommand(rootCmd)
}
