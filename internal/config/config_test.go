package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "PENDING", cfg.Registration.DefaultStatus)
	assert.Equal(t, "R$", cfg.Report.CurrencySymbol)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	assert.Contains(t, cfg.RolePermissions("VOLUNTEER"), PermVisitsWrite)
	assert.NotContains(t, cfg.RolePermissions("VOLUNTEER"), PermReportsExport)
}

func TestFromYAMLKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := FromYAML([]byte("organization:\n  name: Outra Igreja\n"))
	require.NoError(t, err)
	assert.Equal(t, "Outra Igreja", cfg.Organization.Name)
	assert.Equal(t, "LOW", cfg.Registration.DefaultUrgency)
	assert.NotEmpty(t, cfg.RBAC.Roles["ADMIN"].Permissions)
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"status":  "registration:\n  default_status: DONE\n",
		"urgency": "registration:\n  default_urgency: SOON\n",
		"ttl":     "registration:\n  session_ttl: forever\n",
		"admin":   "rbac:\n  roles:\n    VOLUNTEER:\n      permissions: [families.read]\n",
		"syntax":  "organization: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}
