package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/ingress-configurator/reconciler"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CONFIG_SNAPSHOT", envName("config-snapshot"))
	assert.Equal(t, "DEBUG", envName("debug"))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "active\n", formatStatus(reconciler.Active()))
	assert.Equal(t, "blocked: Missing haproxy-route relation.\n",
		formatStatus(reconciler.Blocked("Missing haproxy-route relation.")))
}

func TestFormatEndpoints(t *testing.T) {
	out, err := formatEndpoints(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"endpoints": {}}`, out)

	out, err = formatEndpoints([]string{"https://example.com/app"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"endpoints": "[\"https://example.com/app\"]"}`, out)
}

func TestRootCommand(t *testing.T) {
	root, err := RootCommand()
	require.NoError(t, err)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "reconcile")
	assert.Contains(t, names, "get-proxied-endpoints")
}

func TestReconcileOptsValidate(t *testing.T) {
	assert.Error(t, (&reconcileOpts{}).Validate())
	assert.NoError(t, (&reconcileOpts{
		ConfigSnapshot:   "/tmp/config.yaml",
		RelationSnapshot: "/tmp/relations.yaml",
	}).Validate())
}
