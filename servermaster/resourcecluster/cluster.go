package resourcecluster

import (
	"sync"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/containers"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/future"
)

// ResourceCluster is the task executor view of one cluster. All requests of
// one cluster are applied in arrival order by a single goroutine, so a
// reader never sees a half applied change. Every method returns at once.
type ResourceCluster interface {
	ClusterID() model.ClusterID

	RegisterTaskExecutor(reg *model.TaskExecutorRegistration) *future.Future[struct{}]
	HeartbeatFromTaskExecutor(hb *model.TaskExecutorHeartbeat) *future.Future[struct{}]
	DisconnectTaskExecutor(d *model.TaskExecutorDisconnection) *future.Future[struct{}]

	GetRegisteredTaskExecutors() *future.Future[[]model.TaskExecutorID]
	GetAvailableTaskExecutors() *future.Future[[]model.TaskExecutorID]
	GetBusyTaskExecutors() *future.Future[[]model.TaskExecutorID]
	GetUnregisteredTaskExecutors() *future.Future[[]model.TaskExecutorID]
	GetResourceOverview() *future.Future[*model.ResourceOverview]

	// GetTaskExecutorFor reserves an executor for workerID. It is the only
	// request that is not safe to retry, each success reserves one more executor.
	GetTaskExecutorFor(
		machine model.MachineDefinition, workerID model.WorkerID,
	) *future.Future[model.TaskExecutorID]
	// InitializeTaskExecutor re-establishes that an executor runs workerID.
	InitializeTaskExecutor(id model.TaskExecutorID, workerID model.WorkerID) *future.Future[struct{}]

	GetTaskExecutorInfo(id model.TaskExecutorID) *future.Future[*model.TaskExecutorRegistration]
	GetTaskExecutorInfoByHostname(hostname string) *future.Future[*model.TaskExecutorRegistration]
	GetTaskExecutorState(id model.TaskExecutorID) *future.Future[*model.TaskExecutorStatus]
}

type request struct {
	name  string
	apply func(r *Registry)
	fail  func(err error)
}

type cluster struct {
	id       model.ClusterID
	conf     Config
	clk      clock.Clock
	registry *Registry

	mu      sync.Mutex
	closed  bool
	mailbox *containers.Mailbox[*request]

	lastSweep clock.MonotonicTime
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

var _ ResourceCluster = (*cluster)(nil)

func newCluster(id model.ClusterID, conf Config, clk clock.Clock, onEvent func(Event)) *cluster {
	return &cluster{
		id:        id,
		conf:      conf,
		clk:       clk,
		registry:  NewRegistry(id, clk, conf.MatchPolicy(), conf.Heartbeat.Timeout(), onEvent),
		mailbox:   containers.NewMailbox[*request](),
		lastSweep: clk.Mono(),
		closeCh:   make(chan struct{}),
	}
}

func (c *cluster) start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
}

func (c *cluster) run() {
	ticker := c.clk.Ticker(c.conf.Heartbeat.CheckInterval)
	defer ticker.Stop()

	log.L().Info("resource cluster is started", zap.String("cluster-id", string(c.id)))
	for {
		select {
		case <-c.closeCh:
			c.drain()
			log.L().Info("resource cluster is closed", zap.String("cluster-id", string(c.id)))
			return
		case <-ticker.C:
			c.sweep()
		case <-c.mailbox.C:
			for {
				req, ok := c.mailbox.Pop()
				if !ok {
					break
				}
				// a due sweep goes first, so that a query never sees an
				// executor that should already be unregistered
				c.maybeSweep()
				c.handle(req)
			}
		}
	}
}

func (c *cluster) handle(req *request) {
	defer func() {
		if v := recover(); v != nil {
			log.L().Error("resource cluster request panicked",
				zap.String("cluster-id", string(c.id)),
				zap.String("request", req.name),
				zap.Any("panic", v),
				zap.Stack("stack"))
			req.fail(errors.ErrRequestPanicked.GenWithStackByArgs(req.name, v))
		}
	}()
	req.apply(c.registry)
}

func (c *cluster) drain() {
	for {
		req, ok := c.mailbox.Pop()
		if !ok {
			return
		}
		req.fail(errors.ErrResourceClusterClosed.GenWithStackByArgs(c.id))
	}
}

func (c *cluster) maybeSweep() {
	if c.clk.Mono().Sub(c.lastSweep) >= c.conf.Heartbeat.CheckInterval {
		c.sweep()
	}
}

func (c *cluster) sweep() {
	c.lastSweep = c.clk.Mono()
	if expired := c.registry.CheckHeartbeats(); len(expired) > 0 {
		log.L().Warn("task executors missed heartbeats",
			zap.String("cluster-id", string(c.id)),
			zap.Int("count", len(expired)),
			zap.Duration("timeout", c.conf.Heartbeat.Timeout()))
	}
}

func (c *cluster) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.closeCh)
	c.wg.Wait()
}

func submit[T any](c *cluster, name string, fn func(r *Registry) (T, error)) *future.Future[T] {
	f := future.New[T]()
	req := &request{
		name: name,
		apply: func(r *Registry) {
			f.Complete(fn(r))
		},
		fail: func(err error) {
			var zero T
			f.Complete(zero, err)
		},
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return future.Failed[T](errors.ErrResourceClusterClosed.GenWithStackByArgs(c.id))
	}
	c.mailbox.Push(req)
	return f
}

func submitAck(c *cluster, name string, fn func(r *Registry) error) *future.Future[struct{}] {
	return submit(c, name, func(r *Registry) (struct{}, error) {
		return struct{}{}, fn(r)
	})
}

func (c *cluster) ClusterID() model.ClusterID {
	return c.id
}

func (c *cluster) RegisterTaskExecutor(reg *model.TaskExecutorRegistration) *future.Future[struct{}] {
	return submitAck(c, "register", func(r *Registry) error {
		return r.RegisterTaskExecutor(reg)
	})
}

func (c *cluster) HeartbeatFromTaskExecutor(hb *model.TaskExecutorHeartbeat) *future.Future[struct{}] {
	return submitAck(c, "heartbeat", func(r *Registry) error {
		return r.RecordHeartbeat(hb)
	})
}

func (c *cluster) DisconnectTaskExecutor(d *model.TaskExecutorDisconnection) *future.Future[struct{}] {
	return submitAck(c, "disconnect", func(r *Registry) error {
		return r.UnregisterTaskExecutor(d.TaskExecutorID)
	})
}

func (c *cluster) GetRegisteredTaskExecutors() *future.Future[[]model.TaskExecutorID] {
	return submit(c, "list-registered", func(r *Registry) ([]model.TaskExecutorID, error) {
		return r.ListRegistered(), nil
	})
}

func (c *cluster) GetAvailableTaskExecutors() *future.Future[[]model.TaskExecutorID] {
	return submit(c, "list-available", func(r *Registry) ([]model.TaskExecutorID, error) {
		return r.ListAvailable(), nil
	})
}

func (c *cluster) GetBusyTaskExecutors() *future.Future[[]model.TaskExecutorID] {
	return submit(c, "list-busy", func(r *Registry) ([]model.TaskExecutorID, error) {
		return r.ListBusy(), nil
	})
}

func (c *cluster) GetUnregisteredTaskExecutors() *future.Future[[]model.TaskExecutorID] {
	return submit(c, "list-unregistered", func(r *Registry) ([]model.TaskExecutorID, error) {
		return r.ListUnregistered(), nil
	})
}

func (c *cluster) GetResourceOverview() *future.Future[*model.ResourceOverview] {
	return submit(c, "overview", func(r *Registry) (*model.ResourceOverview, error) {
		return r.ResourceOverview(), nil
	})
}

func (c *cluster) GetTaskExecutorFor(
	machine model.MachineDefinition, workerID model.WorkerID,
) *future.Future[model.TaskExecutorID] {
	return submit(c, "assign", func(r *Registry) (model.TaskExecutorID, error) {
		return r.GetTaskExecutorFor(machine, workerID)
	})
}

func (c *cluster) InitializeTaskExecutor(
	id model.TaskExecutorID, workerID model.WorkerID,
) *future.Future[struct{}] {
	return submitAck(c, "initialize", func(r *Registry) error {
		return r.InitializeTaskExecutor(id, workerID)
	})
}

func (c *cluster) GetTaskExecutorInfo(id model.TaskExecutorID) *future.Future[*model.TaskExecutorRegistration] {
	return submit(c, "info", func(r *Registry) (*model.TaskExecutorRegistration, error) {
		return r.GetTaskExecutorInfo(id)
	})
}

func (c *cluster) GetTaskExecutorInfoByHostname(hostname string) *future.Future[*model.TaskExecutorRegistration] {
	return submit(c, "info-by-hostname", func(r *Registry) (*model.TaskExecutorRegistration, error) {
		return r.GetTaskExecutorInfoByHostname(hostname)
	})
}

func (c *cluster) GetTaskExecutorState(id model.TaskExecutorID) *future.Future[*model.TaskExecutorStatus] {
	return submit(c, "state", func(r *Registry) (*model.TaskExecutorStatus, error) {
		return r.GetTaskExecutorState(id)
	})
}
