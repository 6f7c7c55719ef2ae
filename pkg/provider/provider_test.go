package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

func testClusterSpec(id model.ClusterID) model.ResourceClusterSpec {
	return model.ResourceClusterSpec{
		Name:    "test",
		ID:      id,
		EnvType: model.EnvTypeProd,
		SkuSpecs: []model.SkuTypeSpec{
			{
				SkuID:          "small",
				Capacity:       model.SkuCapacity{SkuID: "small", MinSize: 1, MaxSize: 4, DesireSize: 2},
				ImageID:        "rcm/executor:small",
				CPUCoreCount:   2,
				MemorySizeInMB: 4096,
			},
			{
				SkuID:    "large",
				Capacity: model.SkuCapacity{SkuID: "large", MinSize: 1, MaxSize: 2, DesireSize: 0},
			},
		},
	}
}

func TestNoopProvider(t *testing.T) {
	t.Parallel()

	p := NewNoopProvider()
	_, err := p.ProvisionClusterIfNotPresent(context.Background(),
		&model.ProvisionResourceClusterRequest{ClusterID: "c1"})
	require.True(t, errors.ErrProviderNotConfigured.Equal(err))
	require.Equal(t, model.ResponseCodeServerError, model.ResponseCodeOf(err))

	_, err = p.ScaleResource(context.Background(), &model.ScaleResourceRequest{ClusterID: "c1"})
	require.True(t, errors.ErrProviderNotConfigured.Equal(err))
	require.NoError(t, p.Close())
}

func TestLocalProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewLocalProvider(0, NoopResponseHandler{})
	resp, err := p.ProvisionClusterIfNotPresent(ctx, &model.ProvisionResourceClusterRequest{
		ClusterID:   "c1",
		ClusterSpec: testClusterSpec("c1"),
	})
	require.NoError(t, err)
	require.False(t, resp.Failed())
	require.NotEmpty(t, resp.SubmissionID)
	require.Equal(t, model.ClusterID("c1"), resp.ClusterID)

	size, ok := p.DesireSize("c1", "small")
	require.True(t, ok)
	require.Equal(t, 2, size)

	resp, err = p.ProvisionClusterIfNotPresent(ctx, &model.ProvisionResourceClusterRequest{
		ClusterID:   "c1",
		ClusterSpec: testClusterSpec("c1"),
	})
	require.NoError(t, err)
	require.Empty(t, resp.SubmissionID)
	require.Equal(t, "already present", resp.Response)

	scaleResp, err := p.ScaleResource(ctx, &model.ScaleResourceRequest{
		ClusterID:  "c1",
		SkuID:      "small",
		Region:     "us-east-1",
		EnvType:    model.EnvTypeProd,
		DesireSize: 3,
	})
	require.NoError(t, err)
	require.True(t, scaleResp.IsSuccess())
	require.Equal(t, model.ClusterID("c1"), scaleResp.ClusterID)
	require.Equal(t, "small", scaleResp.SkuID)
	require.Equal(t, "us-east-1", scaleResp.Region)
	require.Equal(t, 3, scaleResp.DesireSize)
	size, _ = p.DesireSize("c1", "small")
	require.Equal(t, 3, size)

	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "small", DesireSize: -1})
	require.True(t, errors.ErrInvalidArgument.Equal(err))
}

func TestLocalProviderDelayCanceled(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider(time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.ProvisionClusterIfNotPresent(ctx, &model.ProvisionResourceClusterRequest{ClusterID: "c1"})
	require.Equal(t, context.DeadlineExceeded, errors.Cause(err))
	_, ok := p.DesireSize("c1", "small")
	require.False(t, ok)
}

func TestRateLimitedProvider(t *testing.T) {
	t.Parallel()

	// a single token that is never refilled
	p := WithRateLimit(NewLocalProvider(0, nil), rate.NewLimiter(rate.Every(time.Hour), 1))
	ctx := context.Background()
	_, err := p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "s", DesireSize: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = p.ScaleResource(ctx, &model.ScaleResourceRequest{ClusterID: "c1", SkuID: "s", DesireSize: 2})
	require.True(t, errors.ErrProviderOpFail.Equal(err))
	_, err = p.ProvisionClusterIfNotPresent(ctx, &model.ProvisionResourceClusterRequest{ClusterID: "c2"})
	require.True(t, errors.ErrProviderOpFail.Equal(err))

	require.IsType(t, LoggingResponseHandler{}, p.ResponseHandler())
}

func TestConfigAdjust(t *testing.T) {
	t.Parallel()

	conf := NewDefaultConfig()
	require.NoError(t, conf.Adjust())
	require.Equal(t, TypeNoop, conf.Type)

	conf = Config{Type: TypeNATS, RateLimit: 5}
	require.NoError(t, conf.Adjust())
	require.Equal(t, defaultBurst, conf.Burst)
	require.Equal(t, defaultNATSSubjectPrefix, conf.NATS.SubjectPrefix)
	require.Equal(t, "rcm.provider.scale", conf.NATS.ScaleSubject())

	conf = Config{Type: TypeDocker}
	require.True(t, errors.ErrConfigInvalid.Equal(conf.Adjust()))

	conf = Config{Type: TypeLocal, RateLimit: -1}
	require.True(t, errors.ErrConfigInvalid.Equal(conf.Adjust()))

	conf = Config{Type: "k8s"}
	require.True(t, errors.ErrProviderTypeUnknown.Equal(conf.Adjust()))
	_, err := NewProvider(conf)
	require.True(t, errors.ErrProviderTypeUnknown.Equal(err))
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(Config{Type: TypeNoop})
	require.NoError(t, err)
	require.IsType(t, &NoopProvider{}, p)

	p, err = NewProvider(Config{Type: TypeLocal, LocalDelay: time.Millisecond})
	require.NoError(t, err)
	require.IsType(t, &LocalProvider{}, p)
	require.NoError(t, p.Close())
}
