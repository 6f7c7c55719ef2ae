package model

import (
	"fmt"
	"strings"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// MachineDefinition is a hardware shape, either offered by an executor
// or requested for a worker.
type MachineDefinition struct {
	CPUCores    float64 `json:"cpuCores"`
	MemoryMB    float64 `json:"memoryMB"`
	NetworkMbps float64 `json:"networkMbps"`
	DiskMB      float64 `json:"diskMB"`
	NumPorts    int     `json:"numPorts"`
	GPUs        int     `json:"gpus"`
}

// Validate rejects negative dimensions.
func (m MachineDefinition) Validate() error {
	if m.CPUCores < 0 || m.MemoryMB < 0 || m.NetworkMbps < 0 || m.DiskMB < 0 ||
		m.NumPorts < 0 || m.GPUs < 0 {
		return errors.ErrInvalidArgument.GenWithStackByArgs(
			fmt.Sprintf("machine definition has negative dimension: %s", m))
	}
	return nil
}

// String implements fmt.Stringer.
func (m MachineDefinition) String() string {
	return fmt.Sprintf("{cpu:%g mem:%gMB net:%gMbps disk:%gMB ports:%d gpus:%d}",
		m.CPUCores, m.MemoryMB, m.NetworkMbps, m.DiskMB, m.NumPorts, m.GPUs)
}

// MatchPolicy decides how discrete dimensions (ports, GPUs) are matched.
type MatchPolicy string

const (
	// MatchSuperset accepts an offer with at least the requested count.
	MatchSuperset MatchPolicy = "superset"
	// MatchExact accepts an offer with exactly the requested count.
	MatchExact MatchPolicy = "exact"
)

// ParseMatchPolicy parses a policy name, an empty name means MatchSuperset.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSuperset:
		return MatchSuperset, nil
	case MatchExact:
		return MatchExact, nil
	default:
		return "", errors.ErrInvalidArgument.GenWithStackByArgs(
			fmt.Sprintf("unknown match policy %q", s))
	}
}

// CanFit reports whether this (offered) shape satisfies the requested one.
// Continuous dimensions must be at least the requested value.
func (m MachineDefinition) CanFit(requested MachineDefinition, policy MatchPolicy) bool {
	if m.CPUCores < requested.CPUCores ||
		m.MemoryMB < requested.MemoryMB ||
		m.NetworkMbps < requested.NetworkMbps ||
		m.DiskMB < requested.DiskMB {
		return false
	}
	if policy == MatchExact {
		return m.NumPorts == requested.NumPorts && m.GPUs == requested.GPUs
	}
	return m.NumPorts >= requested.NumPorts && m.GPUs >= requested.GPUs
}
