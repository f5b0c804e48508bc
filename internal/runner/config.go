package runner

import (
	"os"
	"path/filepath"
	"strings"
)

// FindConfig locates the nearest ansible.cfg walking up from dir and reads
// the inventory path from its [defaults] section. Either result may be
// empty, in which case ansible falls back to its own defaults.
func FindConfig(dir string) (configPath, inventoryPath string) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", ""
	}

	for {
		candidate := filepath.Join(current, "ansible.cfg")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, inventoryFromConfig(candidate)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ""
		}
		current = parent
	}
}

// inventoryFromConfig reads the inventory path from an ansible.cfg. The
// first section present out of [defaults] then [default] is the only one
// consulted, so a [defaults] header without the key still shadows a
// [default] section that has it. When the chosen section lacks the key,
// the path falls back to an "inventory" file beside the config. Relative
// paths resolve against the config file's directory.
func inventoryFromConfig(path string) string {
	seen := make(map[string]bool)
	values := make(map[string]string)

	data, err := os.ReadFile(path)
	if err == nil {
		section := ""
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
				continue
			}
			if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
				section = strings.Trim(line, "[]")
				seen[section] = true
				continue
			}
			if section != "defaults" && section != "default" {
				continue
			}

			key, value, ok := strings.Cut(line, "=")
			if !ok || strings.TrimSpace(key) != "inventory" {
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				values[section] = value
			}
		}
	}

	inventory := "inventory"
	for _, section := range []string{"defaults", "default"} {
		if seen[section] {
			if v := values[section]; v != "" {
				inventory = v
			}
			break
		}
	}

	if !filepath.IsAbs(inventory) {
		inventory = filepath.Join(filepath.Dir(path), inventory)
	}
	return inventory
}
