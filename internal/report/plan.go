package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sourceplane/roleflow/internal/graph"
	"github.com/sourceplane/roleflow/internal/registry"
)

// PlanJob is one scheduled job in a written plan file.
type PlanJob struct {
	Index int                    `json:"index" yaml:"index"`
	Role  string                 `json:"role" yaml:"role"`
	Host  string                 `json:"host" yaml:"host"`
	Label string                 `json:"label" yaml:"label"`
	Vars  map[string]interface{} `json:"vars,omitempty" yaml:"vars,omitempty"`
}

// PlanEdge is one resolved prerequisite edge between job indexes.
type PlanEdge struct {
	Prereq int `json:"prereq" yaml:"prereq"`
	Target int `json:"target" yaml:"target"`
}

// Plan is the resolved execution graph in a form suitable for writing
// to disk.
type Plan struct {
	Playbook string     `json:"playbook" yaml:"playbook"`
	Jobs     []PlanJob  `json:"jobs" yaml:"jobs"`
	Edges    []PlanEdge `json:"edges" yaml:"edges"`
}

// NewPlan flattens a registry and its dependency graph into a plan.
func NewPlan(playbook string, reg *registry.Registry, g *graph.Graph) *Plan {
	plan := &Plan{Playbook: playbook, Jobs: make([]PlanJob, 0, reg.Len())}
	for _, e := range reg.Entries() {
		plan.Jobs = append(plan.Jobs, PlanJob{
			Index: e.Index,
			Role:  e.Job.Role,
			Host:  e.Job.Host,
			Label: e.DisplayLabel,
			Vars:  e.Job.Vars,
		})
	}
	if g != nil {
		for prereq, targets := range g.Edges {
			for _, target := range targets {
				plan.Edges = append(plan.Edges, PlanEdge{Prereq: prereq, Target: target})
			}
		}
	}
	return plan
}

// WritePlan writes the plan to path, rendering YAML or JSON based on
// the file extension.
func WritePlan(plan *Plan, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create plan directory: %w", err)
		}
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(plan)
	default:
		data, err = json.MarshalIndent(plan, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to render plan: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan to %s: %w", path, err)
	}
	return nil
}
