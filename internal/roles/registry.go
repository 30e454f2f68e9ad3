package roles

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// fallback applies to roles missing from the policy file: least privilege.
var fallback = Policy{Scope: ScopeService, ReadOnly: true}

// Registry resolves role names to policies
type Registry struct {
	policies map[string]Policy
	mu       sync.RWMutex
}

// NewRegistry creates a role registry from the embedded roles.yaml
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/roles.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read roles.yaml: %w", err)
	}
	return NewRegistryFromYAML(data)
}

// NewRegistryFromYAML builds a registry from raw YAML
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
	}

	r := &Registry{policies: make(map[string]Policy, len(file.Roles))}
	for name, policy := range file.Roles {
		switch policy.Scope {
		case ScopeEnterprise, ScopeService:
		default:
			return nil, fmt.Errorf("role %s: unknown scope %q", name, policy.Scope)
		}
		policy.Name = name
		r.policies[name] = policy
	}
	return r, nil
}

// Policy returns the policy for role, or a least-privilege fallback
func (r *Registry) Policy(role string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.policies[role]; ok {
		return p
	}
	p := fallback
	p.Name = role
	return p
}

// IsEnterpriseWide reports whether role sees every service of its enterprise
func (r *Registry) IsEnterpriseWide(role string) bool {
	return r.Policy(role).Scope == ScopeEnterprise
}

// Names returns all configured role names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
