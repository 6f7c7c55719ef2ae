package model

import (
	"encoding/json"
	"strings"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// TaskExecutorID identifies one task executor process. It is assigned when the
// executor starts and stays the same for the lifetime of the process.
type TaskExecutorID string

// ClusterID identifies one logical resource cluster.
type ClusterID string

// WorkerID identifies a job worker that may occupy a task executor.
type WorkerID string

// DefaultClusterID is the cluster an executor joins when none is configured.
const DefaultClusterID ClusterID = "DEFAULT_CLUSTER"

// WorkerPorts is the fixed set of ports a task executor exposes for the worker it hosts.
type WorkerPorts struct {
	MetricsPort int `json:"metricsPort" toml:"metrics"`
	DebugPort   int `json:"debugPort" toml:"debug"`
	ConsolePort int `json:"consolePort" toml:"console"`
	CustomPort  int `json:"customPort" toml:"custom"`
	SinkPort    int `json:"sinkPort" toml:"sink"`
}

// DefaultWorkerPorts returns the ports used when an executor does not configure any.
func DefaultWorkerPorts() WorkerPorts {
	return WorkerPorts{
		MetricsPort: 5051,
		DebugPort:   5052,
		ConsolePort: 5053,
		CustomPort:  5054,
		SinkPort:    5055,
	}
}

// Ports returns all ports in a fixed order.
func (p WorkerPorts) Ports() []int {
	return []int{p.MetricsPort, p.DebugPort, p.ConsolePort, p.CustomPort, p.SinkPort}
}

// TaskExecutorRegistration describes a registered task executor.
// A re-registration replaces the previous record as a whole.
type TaskExecutorRegistration struct {
	TaskExecutorID    TaskExecutorID    `json:"taskExecutorID"`
	ClusterID         ClusterID         `json:"clusterID"`
	Address           string            `json:"taskExecutorAddress"`
	Hostname          string            `json:"hostname"`
	WorkerPorts       WorkerPorts       `json:"workerPorts"`
	MachineDefinition MachineDefinition `json:"machineDefinition"`
}

// Validate checks the fields an executor must always provide.
func (r *TaskExecutorRegistration) Validate() error {
	if r == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("registration is nil")
	}
	if strings.TrimSpace(string(r.TaskExecutorID)) == "" {
		return errors.ErrInvalidArgument.GenWithStackByArgs("task executor id is empty")
	}
	if strings.TrimSpace(string(r.ClusterID)) == "" {
		return errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")
	}
	return r.MachineDefinition.Validate()
}

// OptionalWorkerID holds a WorkerID that may be absent.
// The zero value is absent.
type OptionalWorkerID struct {
	id      WorkerID
	present bool
}

// SomeWorkerID wraps a present WorkerID.
func SomeWorkerID(id WorkerID) OptionalWorkerID {
	return OptionalWorkerID{id: id, present: true}
}

// NoWorkerID returns an absent WorkerID.
func NoWorkerID() OptionalWorkerID {
	return OptionalWorkerID{}
}

// Get returns the WorkerID and whether it is present.
func (o OptionalWorkerID) Get() (WorkerID, bool) {
	return o.id, o.present
}

// IsPresent reports whether a WorkerID is held.
func (o OptionalWorkerID) IsPresent() bool {
	return o.present
}

// String implements fmt.Stringer.
func (o OptionalWorkerID) String() string {
	if !o.present {
		return "<none>"
	}
	return string(o.id)
}

// MarshalJSON encodes an absent value as null.
func (o OptionalWorkerID) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(string(o.id))
}

// UnmarshalJSON decodes null as an absent value.
func (o *OptionalWorkerID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptionalWorkerID{}
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return errors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs("worker id")
	}
	*o = SomeWorkerID(WorkerID(id))
	return nil
}

// TaskExecutorStatus is a point-in-time view of one executor. It is computed
// on every query and never stored.
type TaskExecutorStatus struct {
	Registration    *TaskExecutorRegistration `json:"registration"`
	Registered      bool                      `json:"registered"`
	RunningTask     bool                      `json:"runningTask"`
	AssignedTask    bool                      `json:"assignedTask"`
	WorkerID        OptionalWorkerID          `json:"workerId"`
	// LastHeartbeatMs is the unix time in milliseconds of the last
	// registration or heartbeat.
	LastHeartbeatMs int64                     `json:"lastHeartbeatInMs"`
}

// ResourceOverview is a snapshot of executor counters of one cluster.
type ResourceOverview struct {
	NumRegisteredTaskExecutors   int64 `json:"numRegisteredTaskExecutors"`
	NumAvailableTaskExecutors    int64 `json:"numAvailableTaskExecutors"`
	NumOccupiedTaskExecutors     int64 `json:"numOccupiedTaskExecutors"`
	NumAssignedTaskExecutors     int64 `json:"numAssignedTaskExecutors"`
	NumUnregisteredTaskExecutors int64 `json:"numUnregisteredTaskExecutors"`
}

// TaskExecutorReport is what an executor says about itself in a heartbeat.
type TaskExecutorReport struct {
	// OccupiedBy is the worker currently running on the executor, if any.
	OccupiedBy OptionalWorkerID `json:"occupiedBy"`
}

// TaskExecutorHeartbeat is the periodic liveness message of an executor.
type TaskExecutorHeartbeat struct {
	TaskExecutorID TaskExecutorID `json:"taskExecutorID"`
	ClusterID      ClusterID      `json:"clusterID"`
	// Timestamp is a monotonic millisecond timestamp taken by the executor.
	Timestamp int64              `json:"timestamp"`
	Report    TaskExecutorReport `json:"report"`
}

// TaskExecutorDisconnection is sent by an executor that shuts down gracefully.
type TaskExecutorDisconnection struct {
	TaskExecutorID TaskExecutorID `json:"taskExecutorID"`
	ClusterID      ClusterID      `json:"clusterID"`
}
