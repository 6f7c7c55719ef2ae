package resourcecluster

import (
	"sort"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// occupancy is what an executor is doing for a worker.
type occupancy int

const (
	occupancyNone occupancy = iota
	// the executor is reserved for a worker that has not started yet
	occupancyAssigned
	// the executor reported the worker running
	occupancyRunning
)

func (o occupancy) String() string {
	switch o {
	case occupancyAssigned:
		return "assigned"
	case occupancyRunning:
		return "running"
	}
	return "none"
}

type executorState struct {
	registration *model.TaskExecutorRegistration
	// seq is the order of the first registration, kept across re-registrations.
	seq uint64

	registered bool
	occupancy  occupancy
	workerID   model.WorkerID

	// lastSeen is when the master last heard from the executor.
	lastSeen clock.MonotonicTime
	// lastHeartbeat is lastSeen on the wall clock, for reporting.
	lastHeartbeat time.Time
	// lastTimestamp is the executor's own clock in the last heartbeat.
	lastTimestamp int64
}

func (s *executorState) available() bool {
	return s.registered && s.occupancy == occupancyNone
}

func (s *executorState) busy() bool {
	return s.registered && s.occupancy != occupancyNone
}

func (s *executorState) optionalWorkerID() model.OptionalWorkerID {
	if s.occupancy == occupancyNone {
		return model.NoWorkerID()
	}
	return model.SomeWorkerID(s.workerID)
}

// Registry is the state of the task executors of one cluster.
//
// Every executor known to the registry is in exactly one of three sets:
// available, busy (assigned or running) or unregistered. A Registry is not
// safe for concurrent use, it is owned by the goroutine of its cluster.
type Registry struct {
	clusterID model.ClusterID
	clk       clock.Clock
	policy    model.MatchPolicy
	timeout   time.Duration
	onEvent   func(Event)

	executors  map[model.TaskExecutorID]*executorState
	byHostname map[string]model.TaskExecutorID
	available  *availableIndex
	nextSeq    uint64
}

// NewRegistry creates an empty Registry. An executor not heard from for
// longer than heartbeatTimeout is moved to the unregistered set by
// CheckHeartbeats. onEvent may be nil.
func NewRegistry(
	clusterID model.ClusterID,
	clk clock.Clock,
	policy model.MatchPolicy,
	heartbeatTimeout time.Duration,
	onEvent func(Event),
) *Registry {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Registry{
		clusterID:  clusterID,
		clk:        clk,
		policy:     policy,
		timeout:    heartbeatTimeout,
		onEvent:    onEvent,
		executors:  make(map[model.TaskExecutorID]*executorState),
		byHostname: make(map[string]model.TaskExecutorID),
		available:  newAvailableIndex(),
	}
}

func (r *Registry) emit(tp EventType, s *executorState) {
	ev := Event{
		Tp:         tp,
		ClusterID:  r.clusterID,
		ExecutorID: s.registration.TaskExecutorID,
	}
	if s.occupancy != occupancyNone {
		ev.WorkerID = s.workerID
	}
	r.onEvent(ev)
}

// refreshIndex keeps the available index in line with the state.
func (r *Registry) refreshIndex(s *executorState) {
	if s.available() {
		r.available.add(s)
	} else {
		r.available.remove(s)
	}
}

// RegisterTaskExecutor inserts or replaces the registration of an executor.
// Occupancy survives a re-registration, so a restarted executor that is
// still running its worker does not become available.
func (r *Registry) RegisterTaskExecutor(reg *model.TaskExecutorRegistration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if reg.ClusterID != r.clusterID {
		return errors.ErrTaskExecutorClusterMismatch.GenWithStackByArgs(
			reg.TaskExecutorID, reg.ClusterID, r.clusterID)
	}

	copied := *reg
	s, ok := r.executors[reg.TaskExecutorID]
	if !ok {
		r.nextSeq++
		s = &executorState{seq: r.nextSeq}
		r.executors[reg.TaskExecutorID] = s
	} else if s.registration.Hostname != reg.Hostname {
		delete(r.byHostname, s.registration.Hostname)
	}
	s.registration = &copied
	s.registered = true
	s.lastSeen = r.clk.Mono()
	s.lastHeartbeat = r.clk.Now()
	s.lastTimestamp = 0
	if reg.Hostname != "" {
		r.byHostname[reg.Hostname] = reg.TaskExecutorID
	}
	r.refreshIndex(s)

	log.L().Info("task executor is registered",
		zap.String("cluster-id", string(r.clusterID)),
		zap.String("executor-id", string(reg.TaskExecutorID)),
		zap.String("address", reg.Address),
		zap.Stringer("machine", reg.MachineDefinition),
		zap.Bool("re-register", ok),
		zap.Stringer("occupancy", s.occupancy))
	r.emit(EventRegistered, s)
	return nil
}

// RecordHeartbeat refreshes the liveness of an executor. An executor that was
// unregistered by a timeout gets its previous occupancy back. The report in
// the heartbeat then moves a worker from assigned to running, or releases
// the executor once the worker it was running is gone.
func (r *Registry) RecordHeartbeat(hb *model.TaskExecutorHeartbeat) error {
	s, ok := r.executors[hb.TaskExecutorID]
	if !ok {
		return errors.ErrUnknownTaskExecutor.GenWithStackByArgs(hb.TaskExecutorID)
	}
	if hb.ClusterID != "" && hb.ClusterID != r.clusterID {
		return errors.ErrTaskExecutorClusterMismatch.GenWithStackByArgs(
			hb.TaskExecutorID, hb.ClusterID, r.clusterID)
	}
	if hb.Timestamp != 0 && hb.Timestamp < s.lastTimestamp {
		log.L().Debug("stale heartbeat is ignored",
			zap.String("cluster-id", string(r.clusterID)),
			zap.String("executor-id", string(hb.TaskExecutorID)),
			zap.Int64("timestamp", hb.Timestamp),
			zap.Int64("last-timestamp", s.lastTimestamp))
		return nil
	}
	s.lastSeen = r.clk.Mono()
	s.lastHeartbeat = r.clk.Now()
	s.lastTimestamp = hb.Timestamp

	if !s.registered {
		s.registered = true
		log.L().Info("task executor is back",
			zap.String("cluster-id", string(r.clusterID)),
			zap.String("executor-id", string(hb.TaskExecutorID)),
			zap.Stringer("occupancy", s.occupancy))
		r.emit(EventRestored, s)
	}

	if worker, running := hb.Report.OccupiedBy.Get(); running {
		if s.occupancy != occupancyRunning || s.workerID != worker {
			if s.occupancy == occupancyAssigned && s.workerID != worker {
				log.L().Warn("task executor runs a worker other than the assigned one",
					zap.String("cluster-id", string(r.clusterID)),
					zap.String("executor-id", string(hb.TaskExecutorID)),
					zap.String("assigned-worker-id", string(s.workerID)),
					zap.String("worker-id", string(worker)))
			}
			s.occupancy = occupancyRunning
			s.workerID = worker
			r.emit(EventRunning, s)
		}
	} else if s.occupancy == occupancyRunning {
		log.L().Info("task executor finished its worker",
			zap.String("cluster-id", string(r.clusterID)),
			zap.String("executor-id", string(hb.TaskExecutorID)),
			zap.String("worker-id", string(s.workerID)))
		s.occupancy = occupancyNone
		s.workerID = ""
		r.emit(EventReleased, s)
	}
	r.refreshIndex(s)
	return nil
}

// UnregisterTaskExecutor moves an executor to the unregistered set right away,
// it is used when the executor says it is shutting down.
func (r *Registry) UnregisterTaskExecutor(id model.TaskExecutorID) error {
	s, ok := r.executors[id]
	if !ok {
		return errors.ErrUnknownTaskExecutor.GenWithStackByArgs(id)
	}
	r.unregister(s, "disconnected")
	return nil
}

func (r *Registry) unregister(s *executorState, reason string) {
	if !s.registered {
		return
	}
	s.registered = false
	r.available.remove(s)
	log.L().Info("task executor is unregistered",
		zap.String("cluster-id", string(r.clusterID)),
		zap.String("executor-id", string(s.registration.TaskExecutorID)),
		zap.String("reason", reason),
		zap.Stringer("occupancy", s.occupancy))
	r.emit(EventUnregistered, s)
}

// CheckHeartbeats unregisters every executor that has been silent for longer
// than the heartbeat timeout. It returns the unregistered executors.
func (r *Registry) CheckHeartbeats() []model.TaskExecutorID {
	now := r.clk.Mono()
	var expired []*executorState
	for _, s := range r.executors {
		if s.registered && now.Sub(s.lastSeen) > r.timeout {
			expired = append(expired, s)
		}
	}
	sortBySeq(expired)
	ret := make([]model.TaskExecutorID, 0, len(expired))
	for _, s := range expired {
		r.unregister(s, "heartbeat timeout")
		ret = append(ret, s.registration.TaskExecutorID)
	}
	return ret
}

// InitializeTaskExecutor records that the executor runs workerID. It is used
// to rebuild occupancy after the master or the executor moved.
func (r *Registry) InitializeTaskExecutor(id model.TaskExecutorID, workerID model.WorkerID) error {
	s, ok := r.executors[id]
	if !ok {
		return errors.ErrUnknownTaskExecutor.GenWithStackByArgs(id)
	}
	s.occupancy = occupancyRunning
	s.workerID = workerID
	r.refreshIndex(s)
	log.L().Info("task executor is initialized",
		zap.String("cluster-id", string(r.clusterID)),
		zap.String("executor-id", string(id)),
		zap.String("worker-id", string(workerID)))
	r.emit(EventRunning, s)
	return nil
}

func sortBySeq(states []*executorState) {
	sort.Slice(states, func(i, j int) bool {
		return states[i].seq < states[j].seq
	})
}

func (r *Registry) list(filter func(s *executorState) bool) []model.TaskExecutorID {
	var states []*executorState
	for _, s := range r.executors {
		if filter(s) {
			states = append(states, s)
		}
	}
	sortBySeq(states)
	ret := make([]model.TaskExecutorID, 0, len(states))
	for _, s := range states {
		ret = append(ret, s.registration.TaskExecutorID)
	}
	return ret
}

// ListRegistered returns the live executors, available or busy, oldest first.
func (r *Registry) ListRegistered() []model.TaskExecutorID {
	return r.list(func(s *executorState) bool { return s.registered })
}

// ListAvailable returns the executors that can be assigned, oldest first.
func (r *Registry) ListAvailable() []model.TaskExecutorID {
	return r.list((*executorState).available)
}

// ListBusy returns the live executors that are assigned or running.
func (r *Registry) ListBusy() []model.TaskExecutorID {
	return r.list((*executorState).busy)
}

// ListUnregistered returns the executors that are known but not live.
func (r *Registry) ListUnregistered() []model.TaskExecutorID {
	return r.list(func(s *executorState) bool { return !s.registered })
}

// ResourceOverview counts the executors of every set.
func (r *Registry) ResourceOverview() *model.ResourceOverview {
	ret := &model.ResourceOverview{}
	for _, s := range r.executors {
		if !s.registered {
			ret.NumUnregisteredTaskExecutors++
			continue
		}
		ret.NumRegisteredTaskExecutors++
		switch s.occupancy {
		case occupancyNone:
			ret.NumAvailableTaskExecutors++
		case occupancyAssigned:
			ret.NumAssignedTaskExecutors++
		case occupancyRunning:
			ret.NumOccupiedTaskExecutors++
		}
	}
	return ret
}

// GetTaskExecutorState returns the current status of an executor.
func (r *Registry) GetTaskExecutorState(id model.TaskExecutorID) (*model.TaskExecutorStatus, error) {
	s, ok := r.executors[id]
	if !ok {
		return nil, errors.ErrTaskExecutorNotFound.GenWithStackByArgs(id)
	}
	reg := *s.registration
	return &model.TaskExecutorStatus{
		Registration:    &reg,
		Registered:      s.registered,
		RunningTask:     s.occupancy == occupancyRunning,
		AssignedTask:    s.occupancy == occupancyAssigned,
		WorkerID:        s.optionalWorkerID(),
		LastHeartbeatMs: s.lastHeartbeat.UnixMilli(),
	}, nil
}

// GetTaskExecutorInfo returns the registration of an executor.
func (r *Registry) GetTaskExecutorInfo(id model.TaskExecutorID) (*model.TaskExecutorRegistration, error) {
	s, ok := r.executors[id]
	if !ok {
		return nil, errors.ErrTaskExecutorNotFound.GenWithStackByArgs(id)
	}
	reg := *s.registration
	return &reg, nil
}

// GetTaskExecutorInfoByHostname returns the registration of the executor
// last registered from hostname.
func (r *Registry) GetTaskExecutorInfoByHostname(hostname string) (*model.TaskExecutorRegistration, error) {
	id, ok := r.byHostname[hostname]
	if !ok {
		return nil, errors.ErrTaskExecutorNotFound.GenWithStackByArgs("hostname " + hostname)
	}
	return r.GetTaskExecutorInfo(id)
}
