package model

import (
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// ResponseCode is the outcome carried by every lifecycle response.
type ResponseCode string

// All ResponseCodes
const (
	ResponseCodeSuccess             ResponseCode = "SUCCESS"
	ResponseCodeClientError         ResponseCode = "CLIENT_ERROR"
	ResponseCodeClientErrorNotFound ResponseCode = "CLIENT_ERROR_NOT_FOUND"
	ResponseCodeServerError         ResponseCode = "SERVER_ERROR"
)

// ResponseCodeOf maps an error onto the response code callers see.
func ResponseCodeOf(err error) ResponseCode {
	switch {
	case err == nil:
		return ResponseCodeSuccess
	case errors.ErrClusterSpecNotFound.Equal(err),
		errors.ErrTaskExecutorNotFound.Equal(err),
		errors.ErrUnknownTaskExecutor.Equal(err),
		errors.ErrResourceClusterNotFound.Equal(err):
		return ResponseCodeClientErrorNotFound
	case errors.ErrInvalidArgument.Equal(err),
		errors.ErrTaskExecutorClusterMismatch.Equal(err):
		return ResponseCodeClientError
	default:
		return ResponseCodeServerError
	}
}

// BaseResponse is embedded in every lifecycle response.
type BaseResponse struct {
	ResponseCode ResponseCode `json:"responseCode"`
	Message      string       `json:"message,omitempty"`
}

// IsSuccess reports whether the response code is SUCCESS.
func (r BaseResponse) IsSuccess() bool {
	return r.ResponseCode == ResponseCodeSuccess
}

// ErrorResponse builds a BaseResponse from an error.
func ErrorResponse(err error) BaseResponse {
	return BaseResponse{ResponseCode: ResponseCodeOf(err), Message: err.Error()}
}

// ProvisionResourceClusterRequest asks for a cluster to be persisted and provisioned.
type ProvisionResourceClusterRequest struct {
	ClusterID   ClusterID           `json:"clusterId"`
	ClusterSpec ResourceClusterSpec `json:"clusterSpec"`
}

// ScaleResourceRequest asks the provisioner to resize one SKU of a cluster.
type ScaleResourceRequest struct {
	ClusterID  ClusterID `json:"clusterId"`
	SkuID      string    `json:"skuId"`
	Region     string    `json:"region"`
	EnvType    EnvType   `json:"envType"`
	DesireSize int       `json:"desireSize"`
}

// ScaleResourceResponse is returned by the provisioner for a scale request.
type ScaleResourceResponse struct {
	BaseResponse
	ClusterID  ClusterID `json:"clusterId"`
	SkuID      string    `json:"skuId"`
	Region     string    `json:"region"`
	EnvType    EnvType   `json:"envType"`
	DesireSize int       `json:"desireSize"`
}

// ListResourceClustersResponse lists the persisted clusters.
type ListResourceClustersResponse struct {
	BaseResponse
	RegisteredResourceClusters []RegisteredResourceCluster `json:"registeredResourceClusters"`
}

// GetResourceClusterResponse carries one cluster spec.
type GetResourceClusterResponse struct {
	BaseResponse
	Version     string               `json:"version,omitempty"`
	ClusterSpec *ResourceClusterSpec `json:"clusterSpec,omitempty"`
}

// ProvisionResourceClusterResponse carries the accepted spec and the version
// it was stored with. It is sent before provisioning is known to succeed.
type ProvisionResourceClusterResponse struct {
	BaseResponse
	ClusterID   ClusterID            `json:"clusterId,omitempty"`
	Version     string               `json:"version,omitempty"`
	ClusterSpec *ResourceClusterSpec `json:"clusterSpec,omitempty"`
}

// DeleteResourceClusterResponse is the reply to a delete request.
type DeleteResourceClusterResponse struct {
	BaseResponse
}

// ProvisionSubmissionResponse is the provisioner's acknowledgement of a
// provision request. Success means accepted for provisioning, not ready.
type ProvisionSubmissionResponse struct {
	ClusterID    ClusterID `json:"clusterId"`
	SubmissionID string    `json:"submissionId,omitempty"`
	Response     string    `json:"response,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Failed reports whether the submission carries an error.
func (r *ProvisionSubmissionResponse) Failed() bool {
	return r.Error != ""
}

// ProvisionState is the progress of the last provisioning of a cluster.
type ProvisionState string

// All ProvisionStates
const (
	ProvisionStatePending   ProvisionState = "PENDING"
	ProvisionStateSubmitted ProvisionState = "SUBMITTED"
	ProvisionStateFailed    ProvisionState = "FAILED"
)

// ProvisionStatus is the outcome of the last provisioning of a cluster.
type ProvisionStatus struct {
	ClusterID    ClusterID      `json:"clusterId"`
	Version      string         `json:"version"`
	State        ProvisionState `json:"state"`
	SubmissionID string         `json:"submissionId,omitempty"`
	Response     string         `json:"response,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ProvisionStatusResponse carries a ProvisionStatus.
type ProvisionStatusResponse struct {
	BaseResponse
	Status *ProvisionStatus `json:"status,omitempty"`
}
