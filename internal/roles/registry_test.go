package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Embedded(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.True(t, r.IsEnterpriseWide("admin"))
	assert.True(t, r.IsEnterpriseWide("super_admin"))
	assert.False(t, r.IsEnterpriseWide("employee"))
	assert.True(t, r.Policy("manager").ManageShares)
	assert.Contains(t, r.Names(), "guest")
}

func TestRegistry_UnknownRoleIsLeastPrivilege(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	p := r.Policy("intern")
	assert.Equal(t, "intern", p.Name)
	assert.Equal(t, ScopeService, p.Scope)
	assert.True(t, p.ReadOnly)
	assert.False(t, p.ManageShares)
}

func TestNewRegistryFromYAML_RejectsUnknownScope(t *testing.T) {
	_, err := NewRegistryFromYAML([]byte("roles:\n  odd:\n    scope: galaxy\n"))
	assert.Error(t, err)
}
