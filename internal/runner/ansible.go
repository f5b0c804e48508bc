package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/sourceplane/roleflow/internal/model"
	"gopkg.in/yaml.v3"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// StripANSI removes terminal escape sequences from captured output,
// including private-mode sequences like cursor hide/show.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// AnsibleEngine runs one role against one host through ansible-playbook.
// Each job gets a scratch playbook in a private temp directory, so
// concurrent invocations never share files.
type AnsibleEngine struct {
	ConfigPath    string // ansible.cfg handed to the subprocess, may be empty
	InventoryPath string // inventory passed with -i, may be empty
	RolesRoot     string
}

func (e *AnsibleEngine) Run(job model.Job) (int, string, error) {
	dir, err := os.MkdirTemp("", "roleflow-*")
	if err != nil {
		return 1, "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	rolePath, err := filepath.Abs(filepath.Join(e.RolesRoot, filepath.FromSlash(job.Role)))
	if err != nil {
		return 1, "", fmt.Errorf("failed to resolve role path: %w", err)
	}

	playbookPath := filepath.Join(dir, "playbook.yml")
	if err := writeScratchPlaybook(playbookPath, job, rolePath); err != nil {
		return 1, "", err
	}

	var args []string
	if e.InventoryPath != "" {
		args = append(args, "-i", e.InventoryPath)
	}
	args = append(args, playbookPath)

	cmd := exec.Command("ansible-playbook", args...)
	cmd.Env = append(os.Environ(), "ANSIBLE_FORCE_COLOR=0", "ANSIBLE_NOCOLOR=1")
	if e.ConfigPath != "" {
		cmd.Env = append(cmd.Env, "ANSIBLE_CONFIG="+e.ConfigPath)
	}

	out, err := cmd.CombinedOutput()
	text := StripANSI(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), text, nil
		}
		return 1, text, fmt.Errorf("failed to run ansible-playbook: %w", err)
	}

	return 0, text, nil
}

// writeScratchPlaybook stages a single-play playbook that applies one role
// to one host, referencing the role by absolute path.
func writeScratchPlaybook(path string, job model.Job, rolePath string) error {
	roleRef := map[string]interface{}{"role": rolePath}
	if len(job.Vars) > 0 {
		roleRef["vars"] = job.Vars
	}

	play := []interface{}{
		map[string]interface{}{
			"hosts":        job.Host,
			"gather_facts": false,
			"roles":        []interface{}{roleRef},
		},
	}

	data, err := yaml.Marshal(play)
	if err != nil {
		return fmt.Errorf("failed to marshal scratch playbook: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scratch playbook: %w", err)
	}

	return nil
}
