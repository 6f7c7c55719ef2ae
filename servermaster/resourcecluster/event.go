package resourcecluster

import "github.com/hanfei1991/rcmanager/model"

// EventType is the kind of a membership change.
type EventType int32

// All EventTypes
const (
	EventRegistered EventType = iota + 1
	EventUnregistered
	EventRestored
	EventAssigned
	EventRunning
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUnregistered:
		return "unregistered"
	case EventRestored:
		return "restored"
	case EventAssigned:
		return "assigned"
	case EventRunning:
		return "running"
	case EventReleased:
		return "released"
	}
	return "unknown"
}

// Event is published for every executor membership change.
type Event struct {
	Tp         EventType
	ClusterID  model.ClusterID
	ExecutorID model.TaskExecutorID
	// WorkerID is empty unless the executor is occupied.
	WorkerID model.WorkerID
}
