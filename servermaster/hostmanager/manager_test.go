package hostmanager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clusterstorage"
	storagemock "github.com/hanfei1991/rcmanager/pkg/clusterstorage/mock"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/future"
	"github.com/hanfei1991/rcmanager/pkg/provider"
	providermock "github.com/hanfei1991/rcmanager/pkg/provider/mock"
)

type recordingHandler struct {
	mu        sync.Mutex
	responses []*model.ProvisionSubmissionResponse
}

func (h *recordingHandler) HandleProvisionResponse(resp *model.ProvisionSubmissionResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, resp)
}

func (h *recordingHandler) received() []*model.ProvisionSubmissionResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*model.ProvisionSubmissionResponse(nil), h.responses...)
}

func testSpec(id model.ClusterID, desire int) model.ResourceClusterSpec {
	return model.ResourceClusterSpec{
		Name:       "cluster-" + string(id),
		ID:         id,
		OwnerName:  "owner",
		OwnerEmail: "owner@example.com",
		EnvType:    model.EnvTypeProd,
		SkuSpecs: []model.SkuTypeSpec{{
			SkuID:          "small",
			Capacity:       model.SkuCapacity{SkuID: "small", MinSize: 1, MaxSize: 10, DesireSize: desire},
			ImageID:        "rcm/executor:latest",
			CPUCoreCount:   2,
			MemorySizeInMB: 4096,
			NetworkMbps:    128,
			DiskSizeInMB:   8192,
		}},
	}
}

func await[T any](t *testing.T, f *future.Future[T]) T {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	val, err := f.Get(ctx)
	require.NoError(t, err)
	return val
}

func newTestManager(t *testing.T, storage clusterstorage.StorageProvider, prov provider.Provider) *Manager {
	m := NewManager(Config{CallTimeout: 5 * time.Second}, storage, prov)
	t.Cleanup(m.Close)
	return m
}

func TestProvisionGetListDelete(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewLocalProvider(0, handler))

	spec := testSpec("c1", 2)
	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: spec}))
	require.True(t, resp.IsSuccess(), resp.Message)
	require.NotEmpty(t, resp.Version)
	require.Equal(t, spec, *resp.ClusterSpec)

	got := await(t, m.GetSpec("c1"))
	require.True(t, got.IsSuccess())
	require.Equal(t, spec, *got.ClusterSpec)
	require.Equal(t, resp.Version, got.Version)

	second := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 3)}))
	require.True(t, second.IsSuccess())
	require.NotEqual(t, resp.Version, second.Version)

	// the id is taken from the request when the spec has none
	spec2 := testSpec("", 1)
	resp2 := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c2", ClusterSpec: spec2}))
	require.True(t, resp2.IsSuccess())
	require.Equal(t, model.ClusterID("c2"), resp2.ClusterSpec.ID)

	list := await(t, m.List())
	require.True(t, list.IsSuccess())
	require.Equal(t, []model.RegisteredResourceCluster{
		{ID: "c1", Version: second.Version},
		{ID: "c2", Version: resp2.Version},
	}, list.RegisteredResourceClusters)

	require.Eventually(t, func() bool {
		status := await(t, m.ProvisionStatus("c1"))
		return status.IsSuccess() &&
			status.Status.State == model.ProvisionStateSubmitted &&
			status.Status.Version == second.Version
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(handler.received()) == 3
	}, 5*time.Second, 10*time.Millisecond)

	del := await(t, m.Delete("c1"))
	require.True(t, del.IsSuccess())
	list = await(t, m.List())
	require.Equal(t, []model.RegisteredResourceCluster{{ID: "c2", Version: resp2.Version}}, list.RegisteredResourceClusters)

	got = await(t, m.GetSpec("c1"))
	require.Equal(t, model.ResponseCodeClientErrorNotFound, got.ResponseCode)
	require.Nil(t, got.ClusterSpec)
	status := await(t, m.ProvisionStatus("c1"))
	require.Equal(t, model.ResponseCodeClientErrorNotFound, status.ResponseCode)

	// deleting an unknown cluster succeeds
	del = await(t, m.Delete("unknown"))
	require.True(t, del.IsSuccess())
}

func TestProvisionRepliesBeforeProvisioning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	handler := &recordingHandler{}
	prov := providermock.NewProvider(t)
	prov.On("ProvisionClusterIfNotPresent", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ProvisionSubmissionResponse{ClusterID: "c1", SubmissionID: "s1", Response: "mock resp"}, nil).
		Once()
	prov.On("ResponseHandler").Return(handler)
	m := newTestManager(t, clusterstorage.NewMemoryStorage(), prov)

	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)}))
	require.True(t, resp.IsSuccess())

	// the lane is not held by the provider call
	got := await(t, m.GetSpec("c1"))
	require.True(t, got.IsSuccess())
	status := await(t, m.ProvisionStatus("c1"))
	require.Equal(t, model.ProvisionStatePending, status.Status.State)
	require.Empty(t, handler.received())

	close(release)
	require.Eventually(t, func() bool {
		status := await(t, m.ProvisionStatus("c1"))
		return status.Status.State == model.ProvisionStateSubmitted
	}, 5*time.Second, 10*time.Millisecond)
	status = await(t, m.ProvisionStatus("c1"))
	require.Equal(t, "s1", status.Status.SubmissionID)
	require.Equal(t, "mock resp", status.Status.Response)
	require.Equal(t, resp.Version, status.Status.Version)
	require.Len(t, handler.received(), 1)
}

func TestProvisionFailureIsRecorded(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewNoopProvider())
	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)}))
	// the spec is stored even though nothing can provision it
	require.True(t, resp.IsSuccess())

	require.Eventually(t, func() bool {
		status := await(t, m.ProvisionStatus("c1"))
		return status.Status.State == model.ProvisionStateFailed
	}, 5*time.Second, 10*time.Millisecond)
	status := await(t, m.ProvisionStatus("c1"))
	require.Contains(t, status.Status.Error, "no resource cluster provider is configured")
	require.True(t, await(t, m.GetSpec("c1")).IsSuccess())
}

func TestSupersededProvisioningIsNotRecorded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	handler := &recordingHandler{}
	prov := providermock.NewProvider(t)
	prov.On("ProvisionClusterIfNotPresent", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ProvisionSubmissionResponse{ClusterID: "c1", SubmissionID: "s1"}, nil).
		Once()
	prov.On("ResponseHandler").Return(handler)
	m := newTestManager(t, clusterstorage.NewMemoryStorage(), prov)

	// queued back to back, applied in order
	provisionF := m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)})
	deleteF := m.Delete("c1")
	getF := m.GetSpec("c1")
	require.True(t, await(t, provisionF).IsSuccess())
	require.True(t, await(t, deleteF).IsSuccess())
	require.Equal(t, model.ResponseCodeClientErrorNotFound, await(t, getF).ResponseCode)

	close(release)
	require.Eventually(t, func() bool {
		return len(handler.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	status := await(t, m.ProvisionStatus("c1"))
	require.Equal(t, model.ResponseCodeClientErrorNotFound, status.ResponseCode)
}

func TestStorageFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	storage := storagemock.NewMockStorageProvider(ctrl)
	// the provider must not be called when the spec is not stored
	prov := providermock.NewProvider(t)
	m := newTestManager(t, storage, prov)

	storeErr := errors.ErrMetaOpFail.GenWithStackByArgs()
	storage.EXPECT().RegisterAndUpdateClusterSpec(gomock.Any(), gomock.Any()).Return(nil, storeErr)
	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)}))
	require.Equal(t, model.ResponseCodeServerError, resp.ResponseCode)
	require.Equal(t, storeErr.Error(), resp.Message)
	status := await(t, m.ProvisionStatus("c1"))
	require.Equal(t, model.ResponseCodeClientErrorNotFound, status.ResponseCode)

	storage.EXPECT().GetRegisteredResourceClustersWritable(gomock.Any()).Return(nil, storeErr)
	list := await(t, m.List())
	require.Equal(t, model.ResponseCodeServerError, list.ResponseCode)
	require.Contains(t, list.Message, "meta operation fail")

	storage.EXPECT().GetResourceClusterSpecWritable(gomock.Any(), model.ClusterID("c1")).Return(nil, storeErr)
	got := await(t, m.GetSpec("c1"))
	require.Equal(t, model.ResponseCodeServerError, got.ResponseCode)

	storage.EXPECT().DeregisterCluster(gomock.Any(), model.ClusterID("c1")).Return(storeErr)
	del := await(t, m.Delete("c1"))
	require.Equal(t, model.ResponseCodeServerError, del.ResponseCode)
}

func TestLaneRecoversFromPanic(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	storage := storagemock.NewMockStorageProvider(ctrl)
	m := newTestManager(t, storage, provider.NewNoopProvider())

	gomock.InOrder(
		storage.EXPECT().GetResourceClusterSpecWritable(gomock.Any(), model.ClusterID("c1")).
			DoAndReturn(func(context.Context, model.ClusterID) (*model.ResourceClusterSpecWritable, error) {
				panic("storage bug")
			}),
		storage.EXPECT().GetResourceClusterSpecWritable(gomock.Any(), model.ClusterID("c1")).
			Return(&model.ResourceClusterSpecWritable{ID: "c1", Version: "7", ClusterSpec: testSpec("c1", 1)}, nil),
	)

	got := await(t, m.GetSpec("c1"))
	require.Equal(t, model.ResponseCodeServerError, got.ResponseCode)
	require.Contains(t, got.Message, "storage bug")

	got = await(t, m.GetSpec("c1"))
	require.True(t, got.IsSuccess())
	require.Equal(t, "7", got.Version)
}

func TestScale(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewLocalProvider(0, nil))
	req := &model.ScaleResourceRequest{
		ClusterID:  "c1",
		SkuID:      "small",
		Region:     "us-east-1",
		EnvType:    model.EnvTypeProd,
		DesireSize: 5,
	}
	resp := await(t, m.Scale(req))
	require.True(t, resp.IsSuccess())
	require.Equal(t, req.ClusterID, resp.ClusterID)
	require.Equal(t, req.SkuID, resp.SkuID)
	require.Equal(t, req.Region, resp.Region)
	require.Equal(t, req.EnvType, resp.EnvType)
	require.Equal(t, req.DesireSize, resp.DesireSize)

	resp = await(t, m.Scale(&model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: -1}))
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)
	resp = await(t, m.Scale(&model.ScaleResourceRequest{ClusterID: "c1"}))
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)

	noop := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewNoopProvider())
	resp = await(t, noop.Scale(req))
	require.Equal(t, model.ResponseCodeServerError, resp.ResponseCode)
	require.Equal(t, req.DesireSize, resp.DesireSize)
}

func TestScaleDoesNotHoldTheLane(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	prov := providermock.NewProvider(t)
	prov.On("ScaleResource", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ScaleResourceResponse{
			BaseResponse: model.BaseResponse{ResponseCode: model.ResponseCodeSuccess, Message: "test scale resp"},
			ClusterID:    "c1",
		}, nil).
		Once()
	m := newTestManager(t, clusterstorage.NewMemoryStorage(), prov)

	scaleF := m.Scale(&model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: 1})
	got := await(t, m.GetSpec("c1"))
	require.Equal(t, model.ResponseCodeClientErrorNotFound, got.ResponseCode)
	_, _, ok := scaleF.TryGet()
	require.False(t, ok)

	close(release)
	resp := await(t, scaleF)
	require.Equal(t, "test scale resp", resp.Message)
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewNoopProvider())
	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterSpec: testSpec("c1", 1)}))
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)
	resp = await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c2", ClusterSpec: testSpec("c1", 1)}))
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)
	resp = await(t, m.Provision(nil))
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)

	require.Equal(t, model.ResponseCodeClientError, await(t, m.GetSpec("")).ResponseCode)
	require.Equal(t, model.ResponseCodeClientError, await(t, m.Delete("")).ResponseCode)
	require.Equal(t, model.ResponseCodeClientError, await(t, m.ProvisionStatus("")).ResponseCode)
	require.Equal(t, model.ResponseCodeClientError, await(t, m.Scale(nil)).ResponseCode)
}

func TestClose(t *testing.T) {
	t.Parallel()

	m := NewManager(NewDefaultConfig(), clusterstorage.NewMemoryStorage(), provider.NewNoopProvider())
	require.True(t, await(t, m.Delete("c1")).IsSuccess())
	m.Close()
	m.Close()

	_, err := m.List().Get(context.Background())
	require.True(t, errors.ErrHostManagerClosed.Equal(err))
	_, err = m.GetSpec("c1").Get(context.Background())
	require.True(t, errors.ErrHostManagerClosed.Equal(err))
}

func TestProviderPanicFailsOneRequest(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	prov := providermock.NewProvider(t)
	prov.On("ScaleResource", mock.Anything, mock.Anything).Panic("scale bug").Once()
	prov.On("ProvisionClusterIfNotPresent", mock.Anything, mock.Anything).Panic("provision bug").Once()
	prov.On("ResponseHandler").Return(handler)
	m := newTestManager(t, clusterstorage.NewMemoryStorage(), prov)

	req := &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: 3}
	scaled := await(t, m.Scale(req))
	require.Equal(t, model.ResponseCodeServerError, scaled.ResponseCode)
	require.Contains(t, scaled.Message, "scale bug")
	require.Equal(t, req.DesireSize, scaled.DesireSize)

	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)}))
	require.True(t, resp.IsSuccess())
	require.Eventually(t, func() bool {
		status := await(t, m.ProvisionStatus("c1"))
		return status.IsSuccess() && status.Status.State == model.ProvisionStateFailed
	}, 5*time.Second, 10*time.Millisecond)
	status := await(t, m.ProvisionStatus("c1"))
	require.Contains(t, status.Status.Error, "provision bug")
	received := handler.received()
	require.Len(t, received, 1)
	require.True(t, received[0].Failed())

	// the manager keeps serving
	require.True(t, await(t, m.GetSpec("c1")).IsSuccess())
	require.True(t, await(t, m.List()).IsSuccess())
}

func TestIdleLanesAreRetired(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewLocalProvider(0, nil))

	for i := 0; i < 1000; i++ {
		id := model.ClusterID(fmt.Sprintf("unknown-%d", i))
		require.Equal(t, model.ResponseCodeClientErrorNotFound, await(t, m.GetSpec(id)).ResponseCode)
		require.Equal(t, model.ResponseCodeClientErrorNotFound, await(t, m.ProvisionStatus(id)).ResponseCode)
		require.True(t, await(t, m.Delete(id)).IsSuccess())
	}
	require.True(t, await(t, m.List()).IsSuccess())
	require.Eventually(t, func() bool {
		return m.laneCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// a provisioned cluster keeps its status until it is deleted
	resp := await(t, m.Provision(&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testSpec("c1", 1)}))
	require.True(t, resp.IsSuccess())
	require.Eventually(t, func() bool {
		status := await(t, m.ProvisionStatus("c1"))
		return status.IsSuccess() && status.Status.State == model.ProvisionStateSubmitted
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, m.laneCount())

	require.True(t, await(t, m.Delete("c1")).IsSuccess())
	require.Eventually(t, func() bool {
		return m.laneCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, model.ResponseCodeClientErrorNotFound, await(t, m.ProvisionStatus("c1")).ResponseCode)
}

func TestRequestsRaceWithRetiringLanes(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, clusterstorage.NewMemoryStorage(), provider.NewLocalProvider(0, nil))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		codes  = make(map[model.ResponseCode]int)
		errCnt int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				got, err := m.GetSpec("c1").Get(ctx)
				cancel()
				mu.Lock()
				if err != nil {
					errCnt++
				} else {
					codes[got.ResponseCode]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Zero(t, errCnt)
	require.Equal(t, map[model.ResponseCode]int{model.ResponseCodeClientErrorNotFound: 1600}, codes)
	require.Eventually(t, func() bool {
		return m.laneCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
