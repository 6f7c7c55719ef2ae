package executor

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const bytesPerMB = 1024 * 1024

// DetectMachineDefinition returns the shape this executor offers. Configured
// dimensions win, the rest is read from the host. Network bandwidth cannot be
// detected and stays as configured.
func DetectMachineDefinition(conf MachineConfig, ports model.WorkerPorts, dataDir string) (model.MachineDefinition, error) {
	md := model.MachineDefinition{
		CPUCores:    conf.CPUCores,
		MemoryMB:    conf.MemoryMB,
		NetworkMbps: conf.NetworkMbps,
		DiskMB:      conf.DiskMB,
		NumPorts:    len(ports.Ports()),
		GPUs:        conf.GPUs,
	}
	if md.CPUCores == 0 {
		cores, err := cpu.Counts(true)
		if err != nil {
			return md, errors.Annotate(err, "detect cpu cores")
		}
		md.CPUCores = float64(cores)
	}
	if md.MemoryMB == 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return md, errors.Annotate(err, "detect memory")
		}
		md.MemoryMB = float64(vm.Total / bytesPerMB)
	}
	if md.DiskMB == 0 {
		usage, err := disk.Usage(dataDir)
		if err != nil {
			return md, errors.Annotate(err, "detect disk of "+dataDir)
		}
		md.DiskMB = float64(usage.Total / bytesPerMB)
	}
	return md, md.Validate()
}
