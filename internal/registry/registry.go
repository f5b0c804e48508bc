package registry

import (
	"fmt"

	"github.com/sourceplane/roleflow/internal/model"
)

// Entry is one registered job plus the labels derived for it.
type Entry struct {
	Index int
	Job   model.Job

	// BaseLabel is role@host and is shared by duplicate jobs.
	// DisplayLabel appends a run counter to duplicates past the first,
	// LogLabel a zero-based run suffix that is always present.
	BaseLabel    string
	DisplayLabel string
	LogLabel     string
}

// Registry is the immutable, indexed job list for one scheduling run.
// A job's identity is its index in registration order.
type Registry struct {
	entries []Entry
	byRole  map[string][]int
	byBase  map[string][]int
}

// New registers jobs in order, assigning indices and derived labels.
func New(jobs []model.Job) *Registry {
	r := &Registry{
		entries: make([]Entry, 0, len(jobs)),
		byRole:  make(map[string][]int),
		byBase:  make(map[string][]int),
	}

	counts := make(map[string]int)
	for i, job := range jobs {
		base := job.BaseLabel()
		counts[base]++
		n := counts[base]

		display := base
		if n > 1 {
			display = fmt.Sprintf("%s (run %d)", base, n)
		}

		r.entries = append(r.entries, Entry{
			Index:        i,
			Job:          job,
			BaseLabel:    base,
			DisplayLabel: display,
			LogLabel:     fmt.Sprintf("%s#%d", base, n-1),
		})
		r.byRole[job.Role] = append(r.byRole[job.Role], i)
		r.byBase[base] = append(r.byBase[base], i)
	}

	return r
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns all entries in registration order.
func (r *Registry) Entries() []Entry { return r.entries }

// Entry returns the entry at index i.
func (r *Registry) Entry(i int) Entry { return r.entries[i] }

// ByRole returns the ascending indices of jobs running the given role,
// on any host.
func (r *Registry) ByRole(role string) []int { return r.byRole[role] }

// ByBaseLabel returns the ascending indices of jobs sharing a base label.
func (r *Registry) ByBaseLabel(base string) []int { return r.byBase[base] }

// HasRole reports whether any registered job runs the given role.
func (r *Registry) HasRole(role string) bool { return len(r.byRole[role]) > 0 }
