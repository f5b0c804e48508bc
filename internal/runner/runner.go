package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner executes a whole playbook file in one sequential ansible-playbook
// pass, streaming output as it goes.
type Runner struct {
	ConfigPath    string
	InventoryPath string
	Stdout        io.Writer
	Stderr        io.Writer
}

func NewRunner(configPath, inventoryPath string, stdout, stderr io.Writer) *Runner {
	return &Runner{
		ConfigPath:    configPath,
		InventoryPath: inventoryPath,
		Stdout:        stdout,
		Stderr:        stderr,
	}
}

// RunPlaybook invokes ansible-playbook on the file, from the playbook's
// own directory, and returns its exit code. A non-zero exit is not an
// error: the caller decides how to report it.
func (r *Runner) RunPlaybook(path string) (int, error) {
	fmt.Fprintln(r.Stdout, "Running playbook sequentially with ansible-playbook...")

	var args []string
	if r.InventoryPath != "" {
		args = append(args, "-i", r.InventoryPath)
	}
	args = append(args, filepath.Base(path))

	cmd := exec.Command("ansible-playbook", args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = os.Environ()
	if r.ConfigPath != "" {
		cmd.Env = append(cmd.Env, "ANSIBLE_CONFIG="+r.ConfigPath)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("failed to run ansible-playbook: %w", err)
	}

	return 0, nil
}
