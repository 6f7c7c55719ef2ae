package provider

import (
	"context"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
)

// Provider creates and resizes the machines backing a resource cluster.
// Calls may block on remote systems and are never made from a lane goroutine.
type Provider interface {
	// ProvisionClusterIfNotPresent submits the cluster for provisioning.
	// A successful submission means accepted, not ready.
	ProvisionClusterIfNotPresent(
		ctx context.Context, req *model.ProvisionResourceClusterRequest,
	) (*model.ProvisionSubmissionResponse, error)

	// ScaleResource resizes one sku of a cluster.
	ScaleResource(ctx context.Context, req *model.ScaleResourceRequest) (*model.ScaleResourceResponse, error)

	// ResponseHandler returns the handler that gets every provisioning outcome.
	ResponseHandler() ResponseHandler

	Close() error
}

// ResponseHandler consumes provisioning outcomes.
type ResponseHandler interface {
	HandleProvisionResponse(resp *model.ProvisionSubmissionResponse)
}

// NoopResponseHandler drops every outcome.
type NoopResponseHandler struct{}

// HandleProvisionResponse implements ResponseHandler.
func (NoopResponseHandler) HandleProvisionResponse(*model.ProvisionSubmissionResponse) {}

// LoggingResponseHandler logs every outcome.
type LoggingResponseHandler struct{}

// HandleProvisionResponse implements ResponseHandler.
func (LoggingResponseHandler) HandleProvisionResponse(resp *model.ProvisionSubmissionResponse) {
	if resp.Failed() {
		log.L().Warn("resource cluster provisioning failed",
			zap.String("cluster-id", string(resp.ClusterID)),
			zap.String("submission-id", resp.SubmissionID),
			zap.String("error", resp.Error))
		return
	}
	log.L().Info("resource cluster provisioning submitted",
		zap.String("cluster-id", string(resp.ClusterID)),
		zap.String("submission-id", resp.SubmissionID),
		zap.String("response", resp.Response))
}
