package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/roleflow/internal/registry"
)

// Sink writes one log file per executed job under a single directory.
// File names derive from the job's log label, so duplicate jobs never
// clobber each other.
type Sink struct {
	Dir       string
	RolesRoot string
}

// New creates the log directory if needed.
func New(dir, rolesRoot string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Sink{Dir: dir, RolesRoot: rolesRoot}, nil
}

// Path returns the log file a job's output lands in.
func (s *Sink) Path(e registry.Entry) string {
	return filepath.Join(s.Dir, sanitize(e.LogLabel)+".log")
}

// Write stores a job's captured output under a header identifying the
// role, its path, the host and the merged vars.
func (s *Sink) Write(e registry.Entry, output string) (string, error) {
	vars := "{}"
	if len(e.Job.Vars) > 0 {
		vars = fmt.Sprintf("%v", e.Job.Vars)
	}

	header := fmt.Sprintf("Role   : %s\nPath   : %s\nHost   : %s\nVars   : %s\n%s\n",
		e.Job.Role,
		filepath.Join(s.RolesRoot, filepath.FromSlash(e.Job.Role)),
		e.Job.Host,
		vars,
		strings.Repeat("-", 60))

	path := s.Path(e)
	if err := os.WriteFile(path, []byte(header+output), 0o644); err != nil {
		return path, fmt.Errorf("failed to write log %s: %w", path, err)
	}

	return path, nil
}

// sanitize keeps ASCII letters, digits and -_@ in log file names,
// replacing everything else with underscores.
func sanitize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '@':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
