package roles

// Scope is how far a role reaches inside an enterprise
type Scope string

const (
	ScopeEnterprise Scope = "enterprise"
	ScopeService    Scope = "service"
)

// Policy describes what a role may do
type Policy struct {
	Name         string `yaml:"-" json:"name"`
	Scope        Scope  `yaml:"scope" json:"scope"`
	ManageShares bool   `yaml:"manage_shares" json:"manage_shares"`
	ReadOnly     bool   `yaml:"read_only" json:"read_only"`
}

// policyFile is the on-disk layout of roles.yaml
type policyFile struct {
	Roles map[string]Policy `yaml:"roles"`
}
