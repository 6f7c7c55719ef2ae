package provider

import (
	"context"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// NoopProvider is used when no provisioning backend is configured.
// Specs can still be persisted, every provider call fails.
type NoopProvider struct{}

// NewNoopProvider creates a NoopProvider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// ProvisionClusterIfNotPresent implements Provider.
func (p *NoopProvider) ProvisionClusterIfNotPresent(
	_ context.Context, req *model.ProvisionResourceClusterRequest,
) (*model.ProvisionSubmissionResponse, error) {
	return nil, errors.ErrProviderNotConfigured.GenWithStackByArgs("provision cluster " + string(req.ClusterID))
}

// ScaleResource implements Provider.
func (p *NoopProvider) ScaleResource(
	_ context.Context, req *model.ScaleResourceRequest,
) (*model.ScaleResourceResponse, error) {
	return nil, errors.ErrProviderNotConfigured.GenWithStackByArgs("scale cluster " + string(req.ClusterID))
}

// ResponseHandler implements Provider.
func (p *NoopProvider) ResponseHandler() ResponseHandler {
	return NoopResponseHandler{}
}

// Close implements Provider.
func (p *NoopProvider) Close() error {
	return nil
}
