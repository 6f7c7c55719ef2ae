package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/natsutil"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

func newTestGateway(t *testing.T) (*nats.Conn, Config, *resourcecluster.ResourceClusters) {
	_, nc := natsutil.RunEmbedServer(t)
	clusters := resourcecluster.NewResourceClusters(resourcecluster.NewDefaultConfig(), clock.NewMock())
	t.Cleanup(clusters.Close)

	conf := NewDefaultConfig()
	conf.URL = nc.ConnectedUrl()
	conf.SubjectPrefix = "test.executor"
	gw := NewGateway(conf, nc, clusters)
	require.NoError(t, gw.Start())
	t.Cleanup(func() {
		require.NoError(t, gw.Close())
	})
	return nc, conf, clusters
}

func request(t *testing.T, nc *nats.Conn, subject string, v any) model.BaseResponse {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	msg, err := nc.Request(subject, data, 5*time.Second)
	require.NoError(t, err)
	var resp model.BaseResponse
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	return resp
}

func TestGatewayExecutorLifecycle(t *testing.T) {
	t.Parallel()

	nc, conf, clusters := newTestGateway(t)
	reg := &model.TaskExecutorRegistration{
		TaskExecutorID: "te-1",
		ClusterID:      "c1",
		Hostname:       "host-1",
		WorkerPorts:    model.DefaultWorkerPorts(),
		MachineDefinition: model.MachineDefinition{
			CPUCores: 4, MemoryMB: 8192, NumPorts: 5,
		},
	}
	resp := request(t, nc, conf.RegisterSubject(), reg)
	require.True(t, resp.IsSuccess(), resp.Message)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := clusters.GetClusterFor("c1")
	require.NoError(t, err)
	available, err := rc.GetAvailableTaskExecutors().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.TaskExecutorID{"te-1"}, available)

	resp = request(t, nc, conf.HeartbeatSubject(), &model.TaskExecutorHeartbeat{
		TaskExecutorID: "te-1",
		ClusterID:      "c1",
		Timestamp:      1,
		Report:         model.TaskExecutorReport{OccupiedBy: model.SomeWorkerID("w-1")},
	})
	require.True(t, resp.IsSuccess(), resp.Message)
	busy, err := rc.GetBusyTaskExecutors().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.TaskExecutorID{"te-1"}, busy)

	resp = request(t, nc, conf.DisconnectSubject(), &model.TaskExecutorDisconnection{
		TaskExecutorID: "te-1",
		ClusterID:      "c1",
	})
	require.True(t, resp.IsSuccess(), resp.Message)
	unregistered, err := rc.GetUnregisteredTaskExecutors().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.TaskExecutorID{"te-1"}, unregistered)
}

func TestGatewayRejectsBadMessages(t *testing.T) {
	t.Parallel()

	nc, conf, clusters := newTestGateway(t)

	resp := request(t, nc, conf.HeartbeatSubject(), &model.TaskExecutorHeartbeat{
		TaskExecutorID: "never-registered",
		ClusterID:      "c1",
		Timestamp:      1,
	})
	require.Equal(t, model.ResponseCodeClientErrorNotFound, resp.ResponseCode)
	resp = request(t, nc, conf.DisconnectSubject(), &model.TaskExecutorDisconnection{
		TaskExecutorID: "never-registered",
		ClusterID:      "c1",
	})
	require.Equal(t, model.ResponseCodeClientErrorNotFound, resp.ResponseCode)
	// neither creates the cluster
	require.Empty(t, clusters.ClusterIDs())

	msg, err := nc.Request(conf.RegisterSubject(), []byte("{not json"), 5*time.Second)
	require.NoError(t, err)
	var bad model.BaseResponse
	require.NoError(t, json.Unmarshal(msg.Data, &bad))
	require.Equal(t, model.ResponseCodeClientError, bad.ResponseCode)

	// no cluster id
	resp = request(t, nc, conf.RegisterSubject(), &model.TaskExecutorRegistration{TaskExecutorID: "te-2"})
	require.Equal(t, model.ResponseCodeClientError, resp.ResponseCode)
}

func TestGatewayFireAndForgetHeartbeat(t *testing.T) {
	t.Parallel()

	nc, conf, clusters := newTestGateway(t)
	resp := request(t, nc, conf.RegisterSubject(), &model.TaskExecutorRegistration{
		TaskExecutorID: "te-1",
		ClusterID:      "c1",
	})
	require.True(t, resp.IsSuccess(), resp.Message)

	data, err := json.Marshal(&model.TaskExecutorHeartbeat{
		TaskExecutorID: "te-1",
		ClusterID:      "c1",
		Timestamp:      1,
		Report:         model.TaskExecutorReport{OccupiedBy: model.SomeWorkerID("w-1")},
	})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(conf.HeartbeatSubject(), data))
	require.NoError(t, nc.Flush())

	rc, err := clusters.GetClusterFor("c1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		busy, err := rc.GetBusyTaskExecutors().Get(ctx)
		return err == nil && len(busy) == 1
	}, 5*time.Second, 10*time.Millisecond)
}
