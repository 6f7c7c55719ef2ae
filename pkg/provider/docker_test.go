package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

type fakeDockerClient struct {
	mu         sync.Mutex
	seq        int64
	containers map[string]*types.Container
	hostCfgs   map[string]*container.HostConfig
	createErr  error
	closed     bool
}

func newFakeDockerClient() *fakeDockerClient {
	return &fakeDockerClient{
		containers: make(map[string]*types.Container),
		hostCfgs:   make(map[string]*container.HostConfig),
	}
}

func (c *fakeDockerClient) ContainerList(
	_ context.Context, options container.ListOptions,
) ([]types.Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ret []types.Container
	for _, ctr := range c.containers {
		match := true
		for _, label := range options.Filters.Get("label") {
			kv := strings.SplitN(label, "=", 2)
			if ctr.Labels[kv[0]] != kv[1] {
				match = false
				break
			}
		}
		if match {
			ret = append(ret, *ctr)
		}
	}
	return ret, nil
}

func (c *fakeDockerClient) ContainerCreate(
	_ context.Context,
	config *container.Config,
	hostConfig *container.HostConfig,
	_ *network.NetworkingConfig,
	_ *ocispec.Platform,
	_ string,
) (container.CreateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return container.CreateResponse{}, c.createErr
	}
	c.seq++
	id := fmt.Sprintf("ctr-%d", c.seq)
	c.containers[id] = &types.Container{
		ID:      id,
		Image:   config.Image,
		Labels:  config.Labels,
		Created: c.seq,
		State:   "created",
	}
	c.hostCfgs[id] = hostConfig
	return container.CreateResponse{ID: id}, nil
}

func (c *fakeDockerClient) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[id].State = "running"
	return nil
}

func (c *fakeDockerClient) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.containers, id)
	return nil
}

func (c *fakeDockerClient) Close() error {
	c.closed = true
	return nil
}

func (c *fakeDockerClient) count(clusterID model.ClusterID, skuID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ctr := range c.containers {
		if ctr.Labels[LabelClusterID] == string(clusterID) && ctr.Labels[LabelSkuID] == skuID {
			n++
		}
	}
	return n
}

func TestDockerProviderProvision(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	p := NewDockerProvider(DockerConfig{Image: "rcm/executor:latest"}, cli)
	ctx := context.Background()
	req := &model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testClusterSpec("c1")}

	resp, err := p.ProvisionClusterIfNotPresent(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.SubmissionID)
	require.Equal(t, 2, cli.count("c1", "small"))
	// desire size 0 is raised to the min size
	require.Equal(t, 1, cli.count("c1", "large"))

	for id, ctr := range cli.containers {
		require.Equal(t, "running", ctr.State)
		if ctr.Labels[LabelSkuID] == "small" {
			require.Equal(t, "rcm/executor:small", ctr.Image)
			require.Equal(t, int64(2e9), cli.hostCfgs[id].NanoCPUs)
			require.Equal(t, int64(4096*1024*1024), cli.hostCfgs[id].Memory)
		} else {
			require.Equal(t, "rcm/executor:latest", ctr.Image)
		}
	}

	resp, err = p.ProvisionClusterIfNotPresent(ctx, req)
	require.NoError(t, err)
	require.Empty(t, resp.SubmissionID)
	require.Len(t, cli.containers, 3)

	require.NoError(t, p.Close())
	require.True(t, cli.closed)
}

func TestDockerProviderScale(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	p := NewDockerProvider(DockerConfig{Image: "rcm/executor:latest"}, cli)
	ctx := context.Background()
	_, err := p.ProvisionClusterIfNotPresent(ctx,
		&model.ProvisionResourceClusterRequest{ClusterID: "c1", ClusterSpec: testClusterSpec("c1")})
	require.NoError(t, err)

	resp, err := p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: 4})
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	require.Equal(t, 4, resp.DesireSize)
	require.Equal(t, 4, cli.count("c1", "small"))
	for _, ctr := range cli.containers {
		if ctr.Labels[LabelSkuID] == "small" {
			require.Equal(t, "rcm/executor:small", ctr.Image)
		}
	}

	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: 1})
	require.NoError(t, err)
	require.Equal(t, 1, cli.count("c1", "small"))
	// the oldest container is kept
	_, ok := cli.containers["ctr-1"]
	require.True(t, ok)
	require.Equal(t, 1, cli.count("c1", "large"))

	// a sku without containers uses the default image
	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c2", SkuID: "new", DesireSize: 1})
	require.NoError(t, err)
	require.Equal(t, 1, cli.count("c2", "new"))

	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: -1})
	require.True(t, errors.ErrInvalidArgument.Equal(err))

	cli.createErr = errors.New("daemon unavailable")
	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: 2})
	require.True(t, errors.ErrProviderOpFail.Equal(err))
}
