package model

// Job is one role/host execution unit flattened from a playbook. Vars is
// the play vars merged with the role entry vars (role entry wins).
type Job struct {
	Role string                 `yaml:"role" json:"role"`
	Host string                 `yaml:"host" json:"host"`
	Vars map[string]interface{} `yaml:"vars" json:"vars"`
}

// BaseLabel identifies a job by role and host. Duplicate role/host pairs
// share the same base label.
func (j Job) BaseLabel() string {
	return j.Role + "@" + j.Host
}
