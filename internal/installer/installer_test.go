package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/ironhive/internal/common/logger"
)

func withTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "ironhive", "default.json")
}

func TestInstallWritesConfigWithGeneratedAgentID(t *testing.T) {
	path := withTempConfigDir(t)

	opts := InstallOptions{NatsServers: "nats://10.0.0.1:4222,nats://10.0.0.2:4222", ExePath: "/usr/local/bin/ironhive"}
	require.NoError(t, Install(opts, logger.Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var contents configFileContents
	require.NoError(t, json.Unmarshal(data, &contents))
	assert.Equal(t, []string{"nats://10.0.0.1:4222", "nats://10.0.0.2:4222"}, contents.Broker.Addrs)
	assert.Equal(t, "/usr/local/bin/ironhive", contents.Agent.ExePath)
	assert.Len(t, contents.Agent.AgentID, 40)
}

func TestInstallRefusesToOverwriteWithoutFlag(t *testing.T) {
	withTempConfigDir(t)

	opts := InstallOptions{ExePath: "/usr/local/bin/ironhive"}
	require.NoError(t, Install(opts, logger.Default()))

	err := Install(opts, logger.Default())
	assert.Error(t, err)
}

func TestInstallOverwriteConfigReplacesExistingAgentID(t *testing.T) {
	path := withTempConfigDir(t)

	opts := InstallOptions{ExePath: "/usr/local/bin/ironhive"}
	require.NoError(t, Install(opts, logger.Default()))

	before, err := os.ReadFile(path)
	require.NoError(t, err)
	var first configFileContents
	require.NoError(t, json.Unmarshal(before, &first))

	opts.OverwriteConfig = true
	require.NoError(t, Install(opts, logger.Default()))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	var second configFileContents
	require.NoError(t, json.Unmarshal(after, &second))

	assert.NotEqual(t, first.Agent.AgentID, second.Agent.AgentID)
}

func TestUninstallSucceedsEvenWithoutPriorInstall(t *testing.T) {
	withTempConfigDir(t)
	assert.NoError(t, Uninstall(logger.Default()))
}
