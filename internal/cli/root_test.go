package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllCommandsRegistered(t *testing.T) {
	want := []string{
		"provision", "teardown", "deploy", "rollback", "restart",
		"manage", "pip", "backup", "restore", "exec",
		"cron", "bootstrap", "all", "init", "completion", "version",
	}

	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "command %q not registered", name)
	}
}

func TestInitCommandScaffoldsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".webship.yaml")

	require.NoError(t, initCommand(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "project_name")

	// A second run without --force must not clobber the file.
	require.Error(t, initCommand(path, false))
	require.NoError(t, initCommand(path, true))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
}
