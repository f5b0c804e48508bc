package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourceplane/roleflow/internal/model"
	"gopkg.in/yaml.v3"
)

// LoadPlaybook loads and parses an Ansible-style playbook file. The root
// must be a list of plays; an empty document counts as an empty list, and
// list entries that are not mappings are skipped.
func LoadPlaybook(path string) ([]model.Play, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse playbook YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("playbook root should be a list of plays")
	}

	var plays []model.Play
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		var play model.Play
		if err := item.Decode(&play); err != nil {
			return nil, fmt.Errorf("failed to parse play: %w", err)
		}
		plays = append(plays, play)
	}

	return plays, nil
}

// CollectJobs flattens plays into one job per role entry per host, in
// document order. Play vars are merged under each role entry's vars, the
// role entry winning on conflicts. Entries with no usable role name and
// plays with no usable hosts contribute nothing.
func CollectJobs(plays []model.Play) []model.Job {
	var jobs []model.Job
	for _, play := range plays {
		hosts := normalizeHosts(play.Hosts)
		for _, entry := range play.Roles {
			role, roleVars := roleEntry(entry)
			if role == "" {
				continue
			}
			merged := make(map[string]interface{}, len(play.Vars)+len(roleVars))
			for k, v := range play.Vars {
				merged[k] = v
			}
			for k, v := range roleVars {
				merged[k] = v
			}
			for _, host := range hosts {
				jobs = append(jobs, model.Job{Role: role, Host: host, Vars: merged})
			}
		}
	}
	return jobs
}

// LoadDeclarations loads a dependency file, preserving the order targets
// were declared in. A missing, unparseable, or non-mapping file yields no
// declarations rather than an error: dependency files are optional.
func LoadDeclarations(path string) []model.Declaration {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil
	}

	root := doc.Content[0]
	var decls []model.Declaration
	index := make(map[string]int)
	for i := 0; i+1 < len(root.Content); i += 2 {
		decl := model.Declaration{
			Target:  root.Content[i].Value,
			Prereqs: prereqList(root.Content[i+1]),
		}
		// Later duplicates of a target replace the earlier declaration.
		if at, ok := index[decl.Target]; ok {
			decls[at] = decl
			continue
		}
		index[decl.Target] = len(decls)
		decls = append(decls, decl)
	}
	return decls
}

// DefaultDepsPath is the conventional dependency file next to a playbook.
func DefaultDepsPath(playbookPath string) string {
	return playbookPath + ".deps.yml"
}

// MissingRoles returns the distinct roles in jobs that have no directory
// under rolesRoot, sorted.
func MissingRoles(jobs []model.Job, rolesRoot string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, job := range jobs {
		if seen[job.Role] {
			continue
		}
		seen[job.Role] = true
		info, err := os.Stat(filepath.Join(rolesRoot, filepath.FromSlash(job.Role)))
		if err != nil || !info.IsDir() {
			missing = append(missing, job.Role)
		}
	}
	sort.Strings(missing)
	return missing
}

func prereqList(node *yaml.Node) []string {
	if node.Kind != yaml.SequenceNode {
		return nil
	}
	var prereqs []string
	for _, item := range node.Content {
		var raw interface{}
		if err := item.Decode(&raw); err != nil {
			continue
		}
		if s, ok := raw.(string); ok {
			prereqs = append(prereqs, s)
		} else {
			prereqs = append(prereqs, fmt.Sprint(raw))
		}
	}
	return prereqs
}

func normalizeHosts(hosts interface{}) []string {
	switch v := hosts.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if h := strings.TrimSpace(part); h != "" {
				out = append(out, h)
			}
		}
		return out
	case []interface{}:
		var out []string
		for _, item := range v {
			out = append(out, normalizeHosts(item)...)
		}
		return out
	default:
		return nil
	}
}

func roleEntry(entry interface{}) (string, map[string]interface{}) {
	switch v := entry.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case map[string]interface{}:
		name, _ := v["role"].(string)
		if name == "" {
			name, _ = v["name"].(string)
		}
		if name == "" && len(v) == 1 {
			for k := range v {
				name = k
			}
		}
		vars, _ := v["vars"].(map[string]interface{})
		return strings.TrimSpace(name), vars
	default:
		return "", nil
	}
}
