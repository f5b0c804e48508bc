package model

// Play is a single play in an Ansible-style playbook document. Hosts and
// role entries keep their raw YAML shapes; the loader normalizes them.
type Play struct {
	Name  string                 `yaml:"name" json:"name"`
	Hosts interface{}            `yaml:"hosts" json:"hosts"`
	Roles []interface{}          `yaml:"roles" json:"roles"`
	Vars  map[string]interface{} `yaml:"vars" json:"vars"`
}

// Declaration maps one target pattern to the patterns it depends on,
// in the order they were written.
type Declaration struct {
	Target  string   `yaml:"target" json:"target"`
	Prereqs []string `yaml:"prereqs" json:"prereqs"`
}
