package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/roleflow/internal/match"
	"github.com/sourceplane/roleflow/internal/model"
	"github.com/sourceplane/roleflow/internal/registry"
)

// Graph holds prerequisite edges between job indices. Edges[i] lists the
// jobs that must wait for job i to finish; InDegree[j] counts the
// prerequisites of job j. Both are read-only once built: the scheduler
// works on its own in-degree copy.
type Graph struct {
	InDegree []int
	Edges    [][]int

	// MissingTargets are the declaration patterns that matched no job and
	// were skipped with a warning.
	MissingTargets []string
}

// MissingError reports prerequisite patterns that resolve to no job.
// A graph with unresolved prerequisites must not be scheduled.
type MissingError struct {
	Patterns []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("dependencies not found: %s", strings.Join(e.Patterns, ", "))
}

// Build constructs the dependency graph for the registered jobs from the
// ordered declarations.
//
// A declaration whose target matches nothing is skipped and recorded in
// MissingTargets. A prerequisite that matches nothing is fatal, with one
// exception: a host-pinned prerequisite whose role runs on other hosts is
// downgraded to a missing target, on the assumption that the declaration
// was written for a larger inventory.
func Build(reg *registry.Registry, decls []model.Declaration) (*Graph, error) {
	g := &Graph{
		InDegree: make([]int, reg.Len()),
		Edges:    make([][]int, reg.Len()),
	}

	missingTargets := make(map[string]bool)
	missingDeps := make(map[string]bool)

	for _, decl := range decls {
		target := match.Parse(decl.Target)
		targetIDs := target.Resolve(reg)
		if len(targetIDs) == 0 {
			missingTargets[decl.Target] = true
			continue
		}

		for _, raw := range decl.Prereqs {
			prereq := match.Parse(raw)

			pool := prereq.Candidates(reg)
			if prereq.HasHost() && len(pool) == 0 && reg.HasRole(prereq.Role) {
				missingTargets[raw] = true
				continue
			}
			if len(pool) == 0 {
				missingDeps[raw] = true
				continue
			}

			var prereqIDs []int
			for _, i := range pool {
				if match.VarsMatch(reg.Entry(i).Job.Vars, prereq.Vars) {
					prereqIDs = append(prereqIDs, i)
				}
			}
			if len(prereqIDs) == 0 {
				missingDeps[raw] = true
				continue
			}

			for _, targetID := range targetIDs {
				for _, prereqID := range prereqIDs {
					g.Edges[prereqID] = append(g.Edges[prereqID], targetID)
					g.InDegree[targetID]++
				}
			}
		}
	}

	g.MissingTargets = sortedKeys(missingTargets)
	if len(missingDeps) > 0 {
		return g, &MissingError{Patterns: sortedKeys(missingDeps)}
	}

	return g, nil
}

// Ordered returns job indices in a topological order and whether the order
// covers every job. Jobs are missing from the order exactly when they sit
// on a dependency cycle.
func (g *Graph) Ordered() ([]int, bool) {
	inDegree := append([]int(nil), g.InDegree...)

	queue := make([]int, 0, len(inDegree))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(inDegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dependent := range g.Edges[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return order, len(order) == len(inDegree)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
