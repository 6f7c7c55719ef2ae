package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompleteFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "executor.toml")
	content := `
task-executor-id = "te-file"
cluster-id = "c-file"

[master]
url = "nats://10.0.0.1:4222"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := NewCmdExecutor()
	o := newOptions()
	cmd.ResetFlags()
	o.addFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", path,
		"--cluster-id", "c-flag",
		"--address", "10.0.0.2",
	}))
	require.NoError(t, o.complete(cmd))
	require.Equal(t, "te-file", o.executorConfig.TaskExecutorID)
	require.Equal(t, "c-flag", o.executorConfig.ClusterID)
	require.Equal(t, "10.0.0.2", o.executorConfig.Address)
	require.Equal(t, "nats://10.0.0.1:4222", o.executorConfig.Master.URL)
}
