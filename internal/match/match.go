package match

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/sourceplane/roleflow/internal/registry"
)

// varsMarker separates a pattern's base from its JSON variable filter.
const varsMarker = ":vars="

// Pattern selects jobs by role or by role@host, optionally narrowed by a
// variable filter. Patterns are parsed once and passed around as values.
type Pattern struct {
	Raw  string
	Role string
	Host string
	Vars map[string]interface{}

	hasHost bool
}

// Parse splits a raw pattern on the first ":vars=" marker and decodes the
// JSON filter. A malformed or non-object filter degrades to an empty
// filter rather than an error.
func Parse(raw string) Pattern {
	p := Pattern{Raw: raw}

	base := strings.TrimSpace(raw)
	if at := strings.Index(base, varsMarker); at >= 0 {
		filterJSON := base[at+len(varsMarker):]
		base = strings.TrimSpace(base[:at])

		var filter map[string]interface{}
		if err := json.Unmarshal([]byte(filterJSON), &filter); err == nil {
			p.Vars = filter
		}
	}

	if at := strings.Index(base, "@"); at >= 0 {
		p.Role = base[:at]
		p.Host = base[at+1:]
		p.hasHost = true
	} else {
		p.Role = base
	}

	return p
}

// HasHost reports whether the pattern pins a specific host.
func (p Pattern) HasHost() bool { return p.hasHost }

// Base returns the role, or role@host when a host is pinned.
func (p Pattern) Base() string {
	if p.hasHost {
		return p.Role + "@" + p.Host
	}
	return p.Role
}

// Candidates returns the pattern's base pool before vars filtering: jobs
// sharing its base label when a host is pinned, otherwise all jobs running
// its role.
func (p Pattern) Candidates(reg *registry.Registry) []int {
	if p.hasHost {
		return reg.ByBaseLabel(p.Base())
	}
	return reg.ByRole(p.Role)
}

// Resolve returns the ascending indices of registered jobs matching the
// pattern: its candidate pool narrowed by the vars filter.
func (p Pattern) Resolve(reg *registry.Registry) []int {
	var out []int
	for _, i := range p.Candidates(reg) {
		if VarsMatch(reg.Entry(i).Job.Vars, p.Vars) {
			out = append(out, i)
		}
	}
	return out
}

// VarsMatch reports whether vars satisfy the filter: every filter key must
// be present with a deeply equal value. Extra keys in vars are ignored and
// an empty filter matches anything.
func VarsMatch(vars, filter map[string]interface{}) bool {
	for k, want := range filter {
		got, ok := vars[k]
		if !ok || !reflect.DeepEqual(canonical(got), canonical(want)) {
			return false
		}
	}
	return true
}

// canonical round-trips a value through JSON so YAML-decoded and
// JSON-decoded forms of the same value compare equal.
func canonical(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
