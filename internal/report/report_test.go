package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/sourceplane/roleflow/internal/graph"
	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
)

func init() { color.NoColor = true }

func record(index int, label string, status model.JobStatus, exit int, dur time.Duration) model.ExecutionRecord {
	return model.ExecutionRecord{Index: index, Label: label, Status: status, ExitCode: exit, Duration: dur}
}

func TestSummaryClassification(t *testing.T) {
	started := time.Now()
	s := NewSummary("run-1", "site.yml", started, started.Add(2*time.Second), []model.ExecutionRecord{
		record(0, "a@h", model.StatusSucceeded, 0, time.Second),
		record(1, "b@h", model.StatusFailed, 2, time.Second),
		record(2, "c@h", model.StatusNotRun, 1, 0),
		record(3, "d@h", model.StatusSucceeded, 0, time.Second),
	})

	if got := len(s.Succeeded()); got != 2 {
		t.Fatalf("Succeeded() returned %d records, want 2", got)
	}
	if got := s.Succeeded()[1].Label; got != "d@h" {
		t.Errorf("succeeded records out of index order: got %q", got)
	}
	if got := len(s.Failed()); got != 1 {
		t.Fatalf("Failed() returned %d records, want 1", got)
	}
	if got := len(s.NotRun()); got != 1 {
		t.Fatalf("NotRun() returned %d records, want 1", got)
	}
	if got := s.ExitCode(); got != 1 {
		t.Errorf("ExitCode() = %d, want 1", got)
	}
	if got := s.WallTime(); got != 2*time.Second {
		t.Errorf("WallTime() = %s, want 2s", got)
	}
}

func TestSummaryExitCodeAllSucceeded(t *testing.T) {
	started := time.Now()
	s := NewSummary("run-1", "site.yml", started, started.Add(time.Second), []model.ExecutionRecord{
		record(0, "a@h", model.StatusSucceeded, 0, time.Second),
	})
	if got := s.ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0", got)
	}
}

func TestSummaryPrintAllSucceeded(t *testing.T) {
	started := time.Now()
	s := NewSummary("run-1", "site.yml", started, started.Add(2500*time.Millisecond), []model.ExecutionRecord{
		record(0, "role1@mac1", model.StatusSucceeded, 0, 120*time.Millisecond),
		record(1, "role2@mac1", model.StatusSucceeded, 0, 2400*time.Millisecond),
	})

	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()

	if !strings.HasPrefix(out, Rule()+"\n") {
		t.Errorf("summary should open with a rule, got %q", out)
	}
	for _, want := range []string{
		"Succeeded:",
		"- role1@mac1 (0.12s)",
		"- role2@mac1 (2.40s)",
		"Total wall time: 2.50s",
		"All role/host tasks completed successfully.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Failures:") {
		t.Errorf("clean run should not print a failures block:\n%s", out)
	}
}

func TestSummaryPrintFailuresAndNotRun(t *testing.T) {
	started := time.Now()
	s := NewSummary("run-1", "site.yml", started, started.Add(time.Second), []model.ExecutionRecord{
		record(0, "role1@mac1", model.StatusSucceeded, 0, 300*time.Millisecond),
		record(1, "role2@mac1", model.StatusFailed, 2, 100*time.Millisecond),
		record(2, "role3@mac1", model.StatusNotRun, 1, 0),
	})

	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()

	for _, want := range []string{
		"Failures:",
		"- role2@mac1 rc=2",
		"- role3@mac1 (not run) rc=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "All role/host tasks completed successfully.") {
		t.Errorf("failed run should not print the all-clear line:\n%s", out)
	}
	failedAt := strings.Index(out, "- role2@mac1 rc=2")
	notRunAt := strings.Index(out, "- role3@mac1 (not run) rc=1")
	if failedAt > notRunAt {
		t.Errorf("failed jobs should be listed before not-run jobs:\n%s", out)
	}
}

func TestPrintPlanned(t *testing.T) {
	reg := registry.New([]model.Job{
		{Role: "role1", Host: "mac1", Vars: map[string]interface{}{"test1": "test1"}},
		{Role: "role2", Host: "mac1"},
	})

	var buf bytes.Buffer
	PrintPlanned(&buf, reg)
	out := buf.String()

	if !strings.HasPrefix(out, "Planned parallel tasks:\n") {
		t.Errorf("unexpected planned header:\n%s", out)
	}
	if !strings.Contains(out, "- role1@mac1 vars=map[test1:test1]") {
		t.Errorf("planned list missing vars line:\n%s", out)
	}
	if !strings.Contains(out, "- role2@mac1 vars=map[]") {
		t.Errorf("planned list should render empty vars as map[]:\n%s", out)
	}
	if !strings.HasSuffix(out, Rule()+"\n") {
		t.Errorf("planned list should close with a rule:\n%s", out)
	}
}

func TestPrintMissingTargets(t *testing.T) {
	var buf bytes.Buffer
	PrintMissingTargets(&buf, []string{"ghost@mac9", "unknown"})
	out := buf.String()

	if !strings.Contains(out, "Warning: dependency targets not present in this run:") {
		t.Errorf("missing warning header:\n%s", out)
	}
	for _, want := range []string{"- ghost@mac9", "- unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("warning missing pattern %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintMissingTargets(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("no patterns should print nothing, got %q", buf.String())
	}
}

func TestPrintMissingDependencies(t *testing.T) {
	var buf bytes.Buffer
	PrintMissingDependencies(&buf, "site.yml.deps.yml", []string{"absent@mac1"})
	out := buf.String()

	if !strings.Contains(out, "Dependencies not found (deps: site.yml.deps.yml):") {
		t.Errorf("missing fatal header:\n%s", out)
	}
	if !strings.Contains(out, "- absent@mac1") {
		t.Errorf("fatal block missing pattern:\n%s", out)
	}
}

func TestWritePlanJSON(t *testing.T) {
	reg := registry.New([]model.Job{
		{Role: "role1", Host: "mac1"},
		{Role: "role2", Host: "mac1", Vars: map[string]interface{}{"k": "v"}},
	})
	g := &graph.Graph{InDegree: []int{0, 1}, Edges: [][]int{{1}, nil}}

	path := filepath.Join(t.TempDir(), "nested", "plan.json")
	if err := WritePlan(NewPlan("site.yml", reg, g), path); err != nil {
		t.Fatalf("WritePlan: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading plan: %v", err)
	}
	var got Plan
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("plan is not valid JSON: %v", err)
	}
	if got.Playbook != "site.yml" || len(got.Jobs) != 2 {
		t.Fatalf("unexpected plan %+v", got)
	}
	if got.Jobs[1].Label != "role2@mac1" || got.Jobs[1].Vars["k"] != "v" {
		t.Errorf("unexpected job entry %+v", got.Jobs[1])
	}
	if len(got.Edges) != 1 || got.Edges[0].Prereq != 0 || got.Edges[0].Target != 1 {
		t.Errorf("unexpected edges %+v", got.Edges)
	}
}

func TestWritePlanYAML(t *testing.T) {
	reg := registry.New([]model.Job{{Role: "role1", Host: "mac1"}})

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := WritePlan(NewPlan("site.yml", reg, nil), path); err != nil {
		t.Fatalf("WritePlan: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading plan: %v", err)
	}
	var got Plan
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("plan is not valid YAML: %v", err)
	}
	if len(got.Jobs) != 1 || got.Jobs[0].Label != "role1@mac1" {
		t.Fatalf("unexpected plan %+v", got)
	}
}
