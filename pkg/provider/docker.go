package provider

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/autoid"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// Labels put on every executor container.
const (
	LabelClusterID = "rcm.cluster-id"
	LabelSkuID     = "rcm.sku-id"
	LabelImage     = "rcm.image"
	LabelCPU       = "rcm.cpu-cores"
	LabelMemoryMB  = "rcm.memory-mb"
)

// Environment variables passed to every executor container.
const (
	EnvClusterID      = "RCM_CLUSTER_ID"
	EnvSkuID          = "RCM_SKU_ID"
	EnvTaskExecutorID = "RCM_TASK_EXECUTOR_ID"
)

// DockerConfig configures a DockerProvider.
type DockerConfig struct {
	// Host overrides DOCKER_HOST.
	Host string `toml:"host" json:"host"`
	// Image is used for skus without an image id.
	Image string `toml:"image" json:"image"`
	// Network is the network mode of the executor containers.
	Network string `toml:"network" json:"network"`
}

// DockerClient is the part of the docker API the provider uses.
type DockerClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerCreate(
		ctx context.Context,
		config *container.Config,
		hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig,
		platform *ocispec.Platform,
		containerName string,
	) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// DockerProvider runs a resource cluster as labelled task executor
// containers on one docker host. Every container is one executor.
type DockerProvider struct {
	conf    DockerConfig
	cli     DockerClient
	ids     *autoid.UUIDAllocator
	handler ResponseHandler
}

// DialDockerProvider creates a DockerProvider talking to the docker daemon
// from the environment.
func DialDockerProvider(conf DockerConfig) (*DockerProvider, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if conf.Host != "" {
		opts = append(opts, client.WithHost(conf.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("connect docker")
	}
	return NewDockerProvider(conf, cli), nil
}

// NewDockerProvider creates a DockerProvider on an existing client.
func NewDockerProvider(conf DockerConfig, cli DockerClient) *DockerProvider {
	return &DockerProvider{
		conf:    conf,
		cli:     cli,
		ids:     autoid.NewUUIDAllocator(),
		handler: LoggingResponseHandler{},
	}
}

func (p *DockerProvider) listContainers(
	ctx context.Context, clusterID model.ClusterID, skuID string,
) ([]types.Container, error) {
	args := filters.NewArgs(filters.Arg("label", LabelClusterID+"="+string(clusterID)))
	if skuID != "" {
		args.Add("label", LabelSkuID+"="+skuID)
	}
	containers, err := p.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("list containers")
	}
	return containers, nil
}

type containerTemplate struct {
	image    string
	cpu      float64
	memoryMB float64
}

func (p *DockerProvider) templateOf(sku *model.SkuTypeSpec) containerTemplate {
	t := containerTemplate{
		image:    sku.ImageID,
		cpu:      float64(sku.CPUCoreCount),
		memoryMB: float64(sku.MemorySizeInMB),
	}
	if t.image == "" {
		t.image = p.conf.Image
	}
	return t
}

// templateFromLabels recovers the template of an existing container so that
// scaling up creates identical executors.
func (p *DockerProvider) templateFromLabels(labels map[string]string) containerTemplate {
	t := containerTemplate{image: labels[LabelImage]}
	if t.image == "" {
		t.image = p.conf.Image
	}
	t.cpu, _ = strconv.ParseFloat(labels[LabelCPU], 64)
	t.memoryMB, _ = strconv.ParseFloat(labels[LabelMemoryMB], 64)
	return t
}

func (p *DockerProvider) startContainer(
	ctx context.Context, clusterID model.ClusterID, skuID string, t containerTemplate,
) (string, error) {
	if t.image == "" {
		return "", errors.ErrInvalidArgument.GenWithStackByArgs("no image for sku " + skuID)
	}
	executorID := p.ids.AllocID()
	cfg := &container.Config{
		Image: t.image,
		Env: []string{
			EnvClusterID + "=" + string(clusterID),
			EnvSkuID + "=" + skuID,
			EnvTaskExecutorID + "=" + executorID,
		},
		Labels: map[string]string{
			LabelClusterID: string(clusterID),
			LabelSkuID:     skuID,
			LabelImage:     t.image,
			LabelCPU:       strconv.FormatFloat(t.cpu, 'f', -1, 64),
			LabelMemoryMB:  strconv.FormatFloat(t.memoryMB, 'f', -1, 64),
		},
	}
	hostCfg := &container.HostConfig{
		NetworkMode: container.NetworkMode(p.conf.Network),
		Resources: container.Resources{
			NanoCPUs: int64(t.cpu * 1e9),
			Memory:   int64(t.memoryMB * 1024 * 1024),
		},
	}
	created, err := p.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("create container")
	}
	if err := p.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("start container")
	}
	log.L().Info("task executor container started",
		zap.String("cluster-id", string(clusterID)),
		zap.String("sku-id", skuID),
		zap.String("executor-id", executorID),
		zap.String("container-id", created.ID))
	return created.ID, nil
}

// ProvisionClusterIfNotPresent implements Provider. Nothing is created if
// the cluster already has containers.
func (p *DockerProvider) ProvisionClusterIfNotPresent(
	ctx context.Context, req *model.ProvisionResourceClusterRequest,
) (*model.ProvisionSubmissionResponse, error) {
	existing, err := p.listContainers(ctx, req.ClusterID, "")
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &model.ProvisionSubmissionResponse{
			ClusterID: req.ClusterID,
			Response:  fmt.Sprintf("already present with %d containers", len(existing)),
		}, nil
	}

	started := 0
	for i := range req.ClusterSpec.SkuSpecs {
		sku := &req.ClusterSpec.SkuSpecs[i]
		t := p.templateOf(sku)
		for n := 0; n < clampSize(sku.Capacity); n++ {
			if _, err := p.startContainer(ctx, req.ClusterID, sku.SkuID, t); err != nil {
				return nil, err
			}
			started++
		}
	}
	return &model.ProvisionSubmissionResponse{
		ClusterID:    req.ClusterID,
		SubmissionID: p.ids.AllocID(),
		Response:     fmt.Sprintf("started %d containers", started),
	}, nil
}

func clampSize(c model.SkuCapacity) int {
	size := c.DesireSize
	if size < c.MinSize {
		size = c.MinSize
	}
	if c.MaxSize > 0 && size > c.MaxSize {
		size = c.MaxSize
	}
	return size
}

// ScaleResource implements Provider. Scaling down removes the newest
// containers first.
func (p *DockerProvider) ScaleResource(
	ctx context.Context, req *model.ScaleResourceRequest,
) (*model.ScaleResourceResponse, error) {
	if req.DesireSize < 0 {
		return nil, errors.ErrInvalidArgument.GenWithStackByArgs("negative desire size")
	}
	existing, err := p.listContainers(ctx, req.ClusterID, req.SkuID)
	if err != nil {
		return nil, err
	}
	current := len(existing)

	switch {
	case current < req.DesireSize:
		t := containerTemplate{image: p.conf.Image}
		if current > 0 {
			t = p.templateFromLabels(existing[0].Labels)
		}
		for n := current; n < req.DesireSize; n++ {
			if _, err := p.startContainer(ctx, req.ClusterID, req.SkuID, t); err != nil {
				return nil, err
			}
		}
	case current > req.DesireSize:
		sort.Slice(existing, func(i, j int) bool {
			return existing[i].Created > existing[j].Created
		})
		for _, c := range existing[:current-req.DesireSize] {
			err := p.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true})
			if err != nil {
				return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("remove container")
			}
			log.L().Info("task executor container removed",
				zap.String("cluster-id", string(req.ClusterID)),
				zap.String("sku-id", req.SkuID),
				zap.String("container-id", c.ID))
		}
	}

	return &model.ScaleResourceResponse{
		BaseResponse: model.BaseResponse{
			ResponseCode: model.ResponseCodeSuccess,
			Message:      fmt.Sprintf("scaled sku %s from %d to %d", req.SkuID, current, req.DesireSize),
		},
		ClusterID:  req.ClusterID,
		SkuID:      req.SkuID,
		Region:     req.Region,
		EnvType:    req.EnvType,
		DesireSize: req.DesireSize,
	}, nil
}

// ResponseHandler implements Provider.
func (p *DockerProvider) ResponseHandler() ResponseHandler {
	return p.handler
}

// Close implements Provider.
func (p *DockerProvider) Close() error {
	return errors.Trace(p.cli.Close())
}
