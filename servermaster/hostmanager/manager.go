package hostmanager

import (
	"context"
	"strings"
	"sync"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clusterstorage"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/future"
	"github.com/hanfei1991/rcmanager/pkg/provider"
)

// listLane serves requests that are not about one cluster.
const listLane model.ClusterID = ""

// Manager turns resource cluster lifecycle requests into storage and
// provider calls. Requests of one cluster are handled in arrival order on
// the lane of the cluster. Storage calls are waited for on the lane, a
// provider call runs on its own goroutine and its outcome comes back to the
// lane as an event.
//
// Every reply is a response with a response code, the future only fails
// when the manager is closed.
type Manager struct {
	conf     Config
	storage  clusterstorage.StorageProvider
	provider provider.Provider

	// ctx outlives callers, so a call whose caller went away still completes.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	lanes  map[model.ClusterID]*lane

	// wg tracks lane goroutines and provider calls.
	wg sync.WaitGroup
}

// NewManager creates a Manager. conf must be adjusted.
func NewManager(
	conf Config, storage clusterstorage.StorageProvider, prov provider.Provider,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		conf:     conf,
		storage:  storage,
		provider: prov,
		ctx:      ctx,
		cancel:   cancel,
		lanes:    make(map[model.ClusterID]*lane),
	}
}

func (m *Manager) getLane(id model.ClusterID) (*lane, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	l, ok := m.lanes[id]
	if !ok {
		l = newLane(id)
		m.lanes[id] = l
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			l.run(m.retire)
		}()
	}
	return l, true
}

// retire removes an idle lane, so that lanes only live while they hold
// state or have work. It runs on the goroutine of l.
func (m *Manager) retire(l *lane) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !l.retire() {
		return false
	}
	delete(m.lanes, l.state.clusterID)
	return true
}

func (m *Manager) laneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

// push queues msg on the lane of id. A lane may retire between getLane and
// push, the message then goes to a new lane.
func (m *Manager) push(id model.ClusterID, msg *message) bool {
	for {
		l, ok := m.getLane(id)
		if !ok {
			return false
		}
		if l.push(msg) {
			return true
		}
	}
}

// send queues a message on the lane of id. reply gets the response built by
// handle, or the error response if the message fails.
func send[T any](
	m *Manager,
	id model.ClusterID,
	name string,
	handle func(st *laneState, reply func(T)),
	errorResponse func(err error) T,
) *future.Future[T] {
	f := future.New[T]()
	closedErr := errors.ErrHostManagerClosed.GenWithStackByArgs()
	msg := &message{
		name: name,
		handle: func(st *laneState) {
			handle(st, func(resp T) { f.Complete(resp, nil) })
		},
		fail: func(err error) {
			if errors.ErrHostManagerClosed.Equal(err) {
				var zero T
				f.Complete(zero, err)
				return
			}
			f.Complete(errorResponse(err), nil)
		},
	}
	if !m.push(id, msg) {
		return future.Failed[T](closedErr)
	}
	return f
}

func (m *Manager) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.conf.CallTimeout)
}

func validateProvision(req *model.ProvisionResourceClusterRequest) error {
	if req == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("request is nil")
	}
	if strings.TrimSpace(string(req.ClusterID)) == "" {
		return errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")
	}
	if req.ClusterSpec.ID != "" && req.ClusterSpec.ID != req.ClusterID {
		return errors.ErrInvalidArgument.GenWithStackByArgs(
			"cluster spec id " + string(req.ClusterSpec.ID) + " differs from " + string(req.ClusterID))
	}
	return req.ClusterSpec.Validate()
}

func provisionErrorResponse(err error) *model.ProvisionResourceClusterResponse {
	return &model.ProvisionResourceClusterResponse{BaseResponse: model.ErrorResponse(err)}
}

// Provision stores the spec and replies as soon as it is stored. The cluster
// is then provisioned in the background, the outcome is only recorded.
func (m *Manager) Provision(
	req *model.ProvisionResourceClusterRequest,
) *future.Future[*model.ProvisionResourceClusterResponse] {
	if err := validateProvision(req); err != nil {
		return future.Ready(provisionErrorResponse(err), nil)
	}
	return send(m, req.ClusterID, "provision",
		func(st *laneState, reply func(*model.ProvisionResourceClusterResponse)) {
			m.handleProvision(st, req, reply)
		}, provisionErrorResponse)
}

func (m *Manager) handleProvision(
	st *laneState,
	req *model.ProvisionResourceClusterRequest,
	reply func(*model.ProvisionResourceClusterResponse),
) {
	spec := req.ClusterSpec
	spec.ID = req.ClusterID
	writable := &model.ResourceClusterSpecWritable{
		ID:          req.ClusterID,
		Version:     "",
		ClusterSpec: spec,
	}

	ctx, cancel := m.callContext()
	stored, err := m.storage.RegisterAndUpdateClusterSpec(ctx, writable)
	cancel()
	if err != nil {
		log.L().Warn("store resource cluster spec failed",
			zap.String("cluster-id", string(req.ClusterID)), zap.Error(err))
		reply(provisionErrorResponse(err))
		return
	}

	log.L().Info("resource cluster spec is stored",
		zap.String("cluster-id", string(stored.ID)),
		zap.String("version", stored.Version))
	reply(&model.ProvisionResourceClusterResponse{
		BaseResponse: model.BaseResponse{ResponseCode: model.ResponseCodeSuccess},
		ClusterID:    stored.ID,
		Version:      stored.Version,
		ClusterSpec:  &stored.ClusterSpec,
	})

	st.generation++
	st.inflight++
	st.status = &model.ProvisionStatus{
		ClusterID: stored.ID,
		Version:   stored.Version,
		State:     model.ProvisionStatePending,
	}
	m.provisionAsync(st.generation, &model.ProvisionResourceClusterRequest{
		ClusterID:   stored.ID,
		ClusterSpec: stored.ClusterSpec,
	}, stored.Version)
}

func (m *Manager) provisionAsync(
	generation uint64, req *model.ProvisionResourceClusterRequest, version string,
) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		resp, err := m.callProvision(req)
		if err == nil && resp == nil {
			err = errors.ErrProviderOpFail.GenWithStackByArgs("provision returned no response")
		}
		if err != nil {
			resp = &model.ProvisionSubmissionResponse{ClusterID: req.ClusterID, Error: err.Error()}
		}

		done := &message{
			name: "provision-done",
			handle: func(st *laneState) {
				m.handleProvisionDone(st, generation, version, resp)
			},
			fail: func(err error) {
				log.L().Warn("provisioning outcome is dropped",
					zap.String("cluster-id", string(req.ClusterID)),
					zap.String("version", version),
					zap.Error(err))
			},
		}
		if !m.push(req.ClusterID, done) {
			done.fail(errors.ErrHostManagerClosed.GenWithStackByArgs())
		}
	}()
}

// recoverProvider turns a panic of the provider into an error of the one call.
func recoverProvider(op string, clusterID model.ClusterID, err *error) {
	if v := recover(); v != nil {
		log.L().Error("resource cluster provider panicked",
			zap.String("cluster-id", string(clusterID)),
			zap.String("op", op),
			zap.Any("panic", v),
			zap.Stack("stack"))
		*err = errors.ErrRequestPanicked.GenWithStackByArgs(op, v)
	}
}

func (m *Manager) callProvision(
	req *model.ProvisionResourceClusterRequest,
) (resp *model.ProvisionSubmissionResponse, err error) {
	defer recoverProvider("provision", req.ClusterID, &err)
	ctx, cancel := m.callContext()
	defer cancel()
	return m.provider.ProvisionClusterIfNotPresent(ctx, req)
}

func (m *Manager) callScale(req *model.ScaleResourceRequest) (resp *model.ScaleResourceResponse, err error) {
	defer recoverProvider("scale", req.ClusterID, &err)
	ctx, cancel := m.callContext()
	defer cancel()
	return m.provider.ScaleResource(ctx, req)
}

func (m *Manager) handleProvisionDone(
	st *laneState, generation uint64, version string, resp *model.ProvisionSubmissionResponse,
) {
	st.inflight--
	m.provider.ResponseHandler().HandleProvisionResponse(resp)

	if generation != st.generation {
		log.L().Info("outcome of a superseded provisioning",
			zap.String("cluster-id", string(st.clusterID)),
			zap.String("version", version),
			zap.Bool("failed", resp.Failed()))
		return
	}
	status := &model.ProvisionStatus{
		ClusterID:    st.clusterID,
		Version:      version,
		State:        model.ProvisionStateSubmitted,
		SubmissionID: resp.SubmissionID,
		Response:     resp.Response,
		Error:        resp.Error,
	}
	if resp.Failed() {
		status.State = model.ProvisionStateFailed
	}
	st.status = status
}

func scaleErrorResponse(req *model.ScaleResourceRequest) func(err error) *model.ScaleResourceResponse {
	return func(err error) *model.ScaleResourceResponse {
		return &model.ScaleResourceResponse{
			BaseResponse: model.ErrorResponse(err),
			ClusterID:    req.ClusterID,
			SkuID:        req.SkuID,
			Region:       req.Region,
			EnvType:      req.EnvType,
			DesireSize:   req.DesireSize,
		}
	}
}

// Scale passes the request to the provider and replies with its response.
// Nothing is recorded.
func (m *Manager) Scale(req *model.ScaleResourceRequest) *future.Future[*model.ScaleResourceResponse] {
	switch {
	case req == nil:
		return future.Ready(&model.ScaleResourceResponse{
			BaseResponse: model.ErrorResponse(errors.ErrInvalidArgument.GenWithStackByArgs("request is nil")),
		}, nil)
	case req.ClusterID == "" || req.SkuID == "":
		return future.Ready(scaleErrorResponse(req)(
			errors.ErrInvalidArgument.GenWithStackByArgs("cluster id and sku id are required")), nil)
	case req.DesireSize < 0:
		return future.Ready(scaleErrorResponse(req)(
			errors.ErrInvalidArgument.GenWithStackByArgs("negative desire size")), nil)
	}

	return send(m, req.ClusterID, "scale",
		func(_ *laneState, reply func(*model.ScaleResourceResponse)) {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				resp, err := m.callScale(req)
				if err == nil && resp == nil {
					err = errors.ErrProviderOpFail.GenWithStackByArgs("scale returned no response")
				}
				if err != nil {
					log.L().Warn("scale resource cluster failed",
						zap.String("cluster-id", string(req.ClusterID)),
						zap.String("sku-id", req.SkuID),
						zap.Error(err))
					reply(scaleErrorResponse(req)(err))
					return
				}
				reply(resp)
			}()
		}, scaleErrorResponse(req))
}

func listErrorResponse(err error) *model.ListResourceClustersResponse {
	return &model.ListResourceClustersResponse{BaseResponse: model.ErrorResponse(err)}
}

// List replies with the id and version of every stored spec.
func (m *Manager) List() *future.Future[*model.ListResourceClustersResponse] {
	return send(m, listLane, "list",
		func(_ *laneState, reply func(*model.ListResourceClustersResponse)) {
			ctx, cancel := m.callContext()
			specs, err := m.storage.GetRegisteredResourceClustersWritable(ctx)
			cancel()
			if err != nil {
				log.L().Warn("list resource clusters failed", zap.Error(err))
				reply(listErrorResponse(err))
				return
			}
			reply(&model.ListResourceClustersResponse{
				BaseResponse:               model.BaseResponse{ResponseCode: model.ResponseCodeSuccess},
				RegisteredResourceClusters: clusterstorage.SortedRegisteredClusters(specs),
			})
		}, listErrorResponse)
}

func getErrorResponse(err error) *model.GetResourceClusterResponse {
	return &model.GetResourceClusterResponse{BaseResponse: model.ErrorResponse(err)}
}

// GetSpec replies with the stored spec, CLIENT_ERROR_NOT_FOUND if there is none.
func (m *Manager) GetSpec(id model.ClusterID) *future.Future[*model.GetResourceClusterResponse] {
	if id == "" {
		return future.Ready(getErrorResponse(errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")), nil)
	}
	return send(m, id, "get-spec",
		func(_ *laneState, reply func(*model.GetResourceClusterResponse)) {
			ctx, cancel := m.callContext()
			spec, err := m.storage.GetResourceClusterSpecWritable(ctx, id)
			cancel()
			if err != nil {
				reply(getErrorResponse(err))
				return
			}
			reply(&model.GetResourceClusterResponse{
				BaseResponse: model.BaseResponse{ResponseCode: model.ResponseCodeSuccess},
				Version:      spec.Version,
				ClusterSpec:  &spec.ClusterSpec,
			})
		}, getErrorResponse)
}

func deleteErrorResponse(err error) *model.DeleteResourceClusterResponse {
	return &model.DeleteResourceClusterResponse{BaseResponse: model.ErrorResponse(err)}
}

// Delete removes the stored spec. The machines of the cluster are left as
// they are. Deleting an unknown cluster succeeds.
func (m *Manager) Delete(id model.ClusterID) *future.Future[*model.DeleteResourceClusterResponse] {
	if id == "" {
		return future.Ready(deleteErrorResponse(errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")), nil)
	}
	return send(m, id, "delete",
		func(st *laneState, reply func(*model.DeleteResourceClusterResponse)) {
			ctx, cancel := m.callContext()
			err := m.storage.DeregisterCluster(ctx, id)
			cancel()
			if err != nil {
				log.L().Warn("deregister resource cluster failed",
					zap.String("cluster-id", string(id)), zap.Error(err))
				reply(deleteErrorResponse(err))
				return
			}
			st.generation++
			st.status = nil
			log.L().Info("resource cluster is deregistered", zap.String("cluster-id", string(id)))
			reply(&model.DeleteResourceClusterResponse{
				BaseResponse: model.BaseResponse{ResponseCode: model.ResponseCodeSuccess},
			})
		}, deleteErrorResponse)
}

func provisionStatusErrorResponse(err error) *model.ProvisionStatusResponse {
	return &model.ProvisionStatusResponse{BaseResponse: model.ErrorResponse(err)}
}

// ProvisionStatus replies with the outcome of the last provisioning of the
// cluster since the manager started.
func (m *Manager) ProvisionStatus(id model.ClusterID) *future.Future[*model.ProvisionStatusResponse] {
	if id == "" {
		return future.Ready(provisionStatusErrorResponse(
			errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")), nil)
	}
	return send(m, id, "provision-status",
		func(st *laneState, reply func(*model.ProvisionStatusResponse)) {
			if st.status == nil {
				reply(provisionStatusErrorResponse(errors.ErrClusterSpecNotFound.GenWithStackByArgs(id)))
				return
			}
			status := *st.status
			reply(&model.ProvisionStatusResponse{
				BaseResponse: model.BaseResponse{ResponseCode: model.ResponseCodeSuccess},
				Status:       &status,
			})
		}, provisionStatusErrorResponse)
}

// Close stops all lanes and waits for in-flight provider calls. Queued
// requests fail with ErrHostManagerClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	lanes := make([]*lane, 0, len(m.lanes))
	for _, l := range m.lanes {
		lanes = append(lanes, l)
	}
	m.mu.Unlock()

	m.cancel()
	for _, l := range lanes {
		l.close()
	}
	m.wg.Wait()
}
