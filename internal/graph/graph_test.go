package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.New([]model.Job{
		{Role: "role1", Host: "mac1", Vars: map[string]interface{}{"test1": "a"}},
		{Role: "role1", Host: "mac2", Vars: map[string]interface{}{"test1": "b"}},
		{Role: "role2", Host: "mac1"},
		{Role: "role2", Host: "mac2"},
	})
}

func TestBuildLinksPrereqsToTargets(t *testing.T) {
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2@mac1", Prereqs: []string{"role1@mac1"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !reflect.DeepEqual(g.Edges[0], []int{2}) {
		t.Fatalf("unexpected edges from prereq: %v", g.Edges[0])
	}
	if g.InDegree[2] != 1 || g.InDegree[0] != 0 {
		t.Fatalf("unexpected in-degrees: %v", g.InDegree)
	}
	if g.MissingTargets != nil {
		t.Fatalf("unexpected missing targets: %v", g.MissingTargets)
	}
}

func TestBuildCrossProduct(t *testing.T) {
	// A role pattern on both sides links every prereq job to every target.
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2", Prereqs: []string{"role1"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !reflect.DeepEqual(g.Edges[0], []int{2, 3}) || !reflect.DeepEqual(g.Edges[1], []int{2, 3}) {
		t.Fatalf("unexpected edges: %v", g.Edges)
	}
	if g.InDegree[2] != 2 || g.InDegree[3] != 2 {
		t.Fatalf("unexpected in-degrees: %v", g.InDegree)
	}
}

func TestBuildMissingTargetSkipsDeclaration(t *testing.T) {
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role1@mac3", Prereqs: []string{"role2"}},
	})
	if err != nil {
		t.Fatalf("expected missing target to be a warning, got: %v", err)
	}

	if !reflect.DeepEqual(g.MissingTargets, []string{"role1@mac3"}) {
		t.Fatalf("unexpected missing targets: %v", g.MissingTargets)
	}
	for i, d := range g.InDegree {
		if d != 0 {
			t.Fatalf("expected no edges, job %d has in-degree %d", i, d)
		}
	}
}

func TestBuildMissingPrereqFails(t *testing.T) {
	_, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2@mac1", Prereqs: []string{"ghost", "role1@mac1"}},
	})

	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got: %v", err)
	}
	if !reflect.DeepEqual(missing.Patterns, []string{"ghost"}) {
		t.Fatalf("unexpected missing patterns: %v", missing.Patterns)
	}
}

func TestBuildHostPinnedPrereqDowngrades(t *testing.T) {
	// role1 exists, just not on mac3: skip the edge with a warning instead
	// of failing the run.
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2@mac1", Prereqs: []string{"role1@mac3"}},
	})
	if err != nil {
		t.Fatalf("expected host-pinned prereq to downgrade, got: %v", err)
	}

	if !reflect.DeepEqual(g.MissingTargets, []string{"role1@mac3"}) {
		t.Fatalf("unexpected missing targets: %v", g.MissingTargets)
	}
	if g.InDegree[2] != 0 {
		t.Fatalf("expected no edge onto target, in-degree %d", g.InDegree[2])
	}
}

func TestBuildVarsFilter(t *testing.T) {
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2", Prereqs: []string{`role1:vars={"test1": "a"}`}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !reflect.DeepEqual(g.Edges[0], []int{2, 3}) {
		t.Fatalf("unexpected edges from matching prereq: %v", g.Edges[0])
	}
	if g.Edges[1] != nil {
		t.Fatalf("filtered-out prereq contributed edges: %v", g.Edges[1])
	}

	// A filter excluding every candidate is fatal, same as an unknown role.
	_, err = Build(testRegistry(), []model.Declaration{
		{Target: "role2", Prereqs: []string{`role1:vars={"test1": "zzz"}`}},
	})
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError for filtered-out prereq, got: %v", err)
	}
}

func TestBuildReportsDistinctSortedPatterns(t *testing.T) {
	_, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2@mac1", Prereqs: []string{"zeta", "alpha", "zeta"}},
		{Target: "role2@mac2", Prereqs: []string{"alpha"}},
	})

	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got: %v", err)
	}
	if !reflect.DeepEqual(missing.Patterns, []string{"alpha", "zeta"}) {
		t.Fatalf("expected distinct sorted patterns, got: %v", missing.Patterns)
	}
}

func TestOrdered(t *testing.T) {
	g, err := Build(testRegistry(), []model.Declaration{
		{Target: "role2", Prereqs: []string{"role1"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	order, complete := g.Ordered()
	if !complete {
		t.Fatal("expected a complete order")
	}
	if !reflect.DeepEqual(order, []int{0, 1, 2, 3}) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestOrderedDetectsCycle(t *testing.T) {
	reg := registry.New([]model.Job{
		{Role: "role1", Host: "mac1"},
		{Role: "role2", Host: "mac1"},
	})
	g, err := Build(reg, []model.Declaration{
		{Target: "role1@mac1", Prereqs: []string{"role2@mac1"}},
		{Target: "role2@mac1", Prereqs: []string{"role1@mac1"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	order, complete := g.Ordered()
	if complete {
		t.Fatal("expected cycle to leave the order incomplete")
	}
	if len(order) != 0 {
		t.Fatalf("expected no schedulable jobs, got: %v", order)
	}
}
