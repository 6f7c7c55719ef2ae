package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/model"
)

func TestDetectMachineDefinition(t *testing.T) {
	t.Parallel()

	md, err := DetectMachineDefinition(MachineConfig{}, model.DefaultWorkerPorts(), t.TempDir())
	require.NoError(t, err)
	require.Greater(t, md.CPUCores, float64(0))
	require.Greater(t, md.MemoryMB, float64(0))
	require.Greater(t, md.DiskMB, float64(0))
	require.Equal(t, float64(0), md.NetworkMbps)
	require.Equal(t, 5, md.NumPorts)

	conf := MachineConfig{CPUCores: 0.5, MemoryMB: 512, NetworkMbps: 100, DiskMB: 2048, GPUs: 1}
	md, err = DetectMachineDefinition(conf, model.DefaultWorkerPorts(), "/path/does/not/exist")
	require.NoError(t, err)
	require.Equal(t, model.MachineDefinition{
		CPUCores:    0.5,
		MemoryMB:    512,
		NetworkMbps: 100,
		DiskMB:      2048,
		NumPorts:    5,
		GPUs:        1,
	}, md)
}

func TestDetectMachineDefinitionBadDataDir(t *testing.T) {
	t.Parallel()

	_, err := DetectMachineDefinition(MachineConfig{CPUCores: 1, MemoryMB: 1}, model.DefaultWorkerPorts(), "/path/does/not/exist")
	require.Error(t, err)
}
