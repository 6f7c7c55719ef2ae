package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/autoid"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// LocalProvider accepts every request in process. It keeps the desired size
// of every sku it has seen, which is all a single-node deployment needs.
type LocalProvider struct {
	delay   time.Duration
	ids     *autoid.UUIDAllocator
	handler ResponseHandler

	mu    sync.Mutex
	sizes map[model.ClusterID]map[string]int
}

// NewLocalProvider creates a LocalProvider. delay is slept before a
// provision request is answered.
func NewLocalProvider(delay time.Duration, handler ResponseHandler) *LocalProvider {
	if handler == nil {
		handler = LoggingResponseHandler{}
	}
	return &LocalProvider{
		delay:   delay,
		ids:     autoid.NewUUIDAllocator(),
		handler: handler,
		sizes:   make(map[model.ClusterID]map[string]int),
	}
}

// ProvisionClusterIfNotPresent implements Provider.
func (p *LocalProvider) ProvisionClusterIfNotPresent(
	ctx context.Context, req *model.ProvisionResourceClusterRequest,
) (*model.ProvisionSubmissionResponse, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, errors.Trace(ctx.Err())
		case <-timer.C:
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sizes[req.ClusterID]; ok {
		return &model.ProvisionSubmissionResponse{
			ClusterID: req.ClusterID,
			Response:  "already present",
		}, nil
	}
	sizes := make(map[string]int, len(req.ClusterSpec.SkuSpecs))
	for _, sku := range req.ClusterSpec.SkuSpecs {
		sizes[sku.SkuID] = sku.Capacity.DesireSize
	}
	p.sizes[req.ClusterID] = sizes

	resp := &model.ProvisionSubmissionResponse{
		ClusterID:    req.ClusterID,
		SubmissionID: p.ids.AllocID(),
		Response:     fmt.Sprintf("provisioned %d skus", len(sizes)),
	}
	log.L().Info("local provider provisioned cluster",
		zap.String("cluster-id", string(req.ClusterID)),
		zap.String("submission-id", resp.SubmissionID))
	return resp, nil
}

// ScaleResource implements Provider.
func (p *LocalProvider) ScaleResource(
	_ context.Context, req *model.ScaleResourceRequest,
) (*model.ScaleResourceResponse, error) {
	if req.DesireSize < 0 {
		return nil, errors.ErrInvalidArgument.GenWithStackByArgs("negative desire size")
	}

	p.mu.Lock()
	sizes, ok := p.sizes[req.ClusterID]
	if !ok {
		sizes = make(map[string]int)
		p.sizes[req.ClusterID] = sizes
	}
	prev := sizes[req.SkuID]
	sizes[req.SkuID] = req.DesireSize
	p.mu.Unlock()

	return &model.ScaleResourceResponse{
		BaseResponse: model.BaseResponse{
			ResponseCode: model.ResponseCodeSuccess,
			Message:      fmt.Sprintf("scaled sku %s from %d to %d", req.SkuID, prev, req.DesireSize),
		},
		ClusterID:  req.ClusterID,
		SkuID:      req.SkuID,
		Region:     req.Region,
		EnvType:    req.EnvType,
		DesireSize: req.DesireSize,
	}, nil
}

// DesireSize returns the last size requested for a sku.
func (p *LocalProvider) DesireSize(clusterID model.ClusterID, skuID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	size, ok := p.sizes[clusterID][skuID]
	return size, ok
}

// ResponseHandler implements Provider.
func (p *LocalProvider) ResponseHandler() ResponseHandler {
	return p.handler
}

// Close implements Provider.
func (p *LocalProvider) Close() error {
	return nil
}
