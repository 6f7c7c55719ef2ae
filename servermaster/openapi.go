package servermaster

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/future"
	"github.com/hanfei1991/rcmanager/pkg/promutil"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

const (
	// apiOpVarClusterID is the key of cluster id in HTTP API.
	apiOpVarClusterID = "cluster_id"
	// apiOpVarExecutorID is the key of task executor id in HTTP API.
	apiOpVarExecutorID = "executor_id"
	// apiOpVarHostname is the key of executor hostname in HTTP API.
	apiOpVarHostname = "hostname"
)

// ClusterManager serves the lifecycle of resource clusters.
type ClusterManager interface {
	Provision(req *model.ProvisionResourceClusterRequest) *future.Future[*model.ProvisionResourceClusterResponse]
	Scale(req *model.ScaleResourceRequest) *future.Future[*model.ScaleResourceResponse]
	List() *future.Future[*model.ListResourceClustersResponse]
	GetSpec(id model.ClusterID) *future.Future[*model.GetResourceClusterResponse]
	Delete(id model.ClusterID) *future.Future[*model.DeleteResourceClusterResponse]
	ProvisionStatus(id model.ClusterID) *future.Future[*model.ProvisionStatusResponse]
}

// ClusterGetter resolves the ResourceCluster of a cluster id.
type ClusterGetter interface {
	LookupCluster(id model.ClusterID) (resourcecluster.ResourceCluster, error)
}

// AssignTaskExecutorRequest asks for an executor that fits MachineDefinition.
type AssignTaskExecutorRequest struct {
	MachineDefinition model.MachineDefinition `json:"machineDefinition"`
	WorkerID          model.WorkerID          `json:"workerId"`
}

// AssignTaskExecutorResponse names the reserved executor.
type AssignTaskExecutorResponse struct {
	TaskExecutorID model.TaskExecutorID `json:"taskExecutorID"`
}

// OpenAPI provides the HTTP API of the resource cluster master.
type OpenAPI struct {
	manager  ClusterManager
	clusters ClusterGetter
}

// NewOpenAPI creates a new OpenAPI.
func NewOpenAPI(manager ClusterManager, clusters ClusterGetter) *OpenAPI {
	return &OpenAPI{manager: manager, clusters: clusters}
}

// RegisterOpenAPIRoutes registers routes for OpenAPI.
func RegisterOpenAPIRoutes(router *gin.Engine, api *OpenAPI) {
	router.GET("/metrics", gin.WrapH(promutil.HTTPHandlerForMetric()))

	v1 := router.Group("/api/v1")

	clusterGroup := v1.Group("/resourceClusters")
	clusterGroup.GET("", api.ListResourceClusters)
	clusterGroup.POST("", api.ProvisionResourceCluster)
	clusterGroup.GET("/:cluster_id", api.GetResourceCluster)
	clusterGroup.DELETE("/:cluster_id", api.DeleteResourceCluster)
	clusterGroup.POST("/:cluster_id/scaleSku", api.ScaleSku)
	clusterGroup.GET("/:cluster_id/provisionStatus", api.GetProvisionStatus)

	clusterGroup.GET("/:cluster_id/getResourceOverview", api.GetResourceOverview)
	clusterGroup.GET("/:cluster_id/getRegisteredTaskExecutors", api.listExecutors(
		resourcecluster.ResourceCluster.GetRegisteredTaskExecutors))
	clusterGroup.GET("/:cluster_id/getAvailableTaskExecutors", api.listExecutors(
		resourcecluster.ResourceCluster.GetAvailableTaskExecutors))
	clusterGroup.GET("/:cluster_id/getBusyTaskExecutors", api.listExecutors(
		resourcecluster.ResourceCluster.GetBusyTaskExecutors))
	clusterGroup.GET("/:cluster_id/getUnregisteredTaskExecutors", api.listExecutors(
		resourcecluster.ResourceCluster.GetUnregisteredTaskExecutors))
	clusterGroup.POST("/:cluster_id/taskExecutors/assign", api.AssignTaskExecutor)
	clusterGroup.GET("/:cluster_id/taskExecutors/:executor_id", api.GetTaskExecutorInfo)
	clusterGroup.GET("/:cluster_id/taskExecutors/:executor_id/getTaskExecutorState", api.GetTaskExecutorState)
	clusterGroup.GET("/:cluster_id/hosts/:hostname", api.GetTaskExecutorInfoByHostname)
}

// httpStatusOf maps a response code onto an HTTP status, ok is used for SUCCESS.
func httpStatusOf(code model.ResponseCode, ok int) int {
	switch code {
	case model.ResponseCodeSuccess:
		return ok
	case model.ResponseCodeClientErrorNotFound:
		return http.StatusNotFound
	case model.ResponseCodeClientError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, op string, err error) {
	resp := model.ErrorResponse(err)
	observeResponse(op, resp.ResponseCode)
	status := httpStatusOf(resp.ResponseCode, http.StatusOK)
	// the cluster is short of executors, the caller may retry later
	if errors.ErrNoResourceAvailable.Equal(err) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// writeResponse waits for a lifecycle response and writes it with the status
// its response code maps to.
func writeResponse[T any](c *gin.Context, op string, f *future.Future[T], base func(T) model.BaseResponse, ok int) {
	resp, err := f.Get(c.Request.Context())
	if err != nil {
		writeError(c, op, err)
		return
	}
	code := base(resp).ResponseCode
	observeResponse(op, code)
	c.JSON(httpStatusOf(code, ok), resp)
}

func bindJSON(c *gin.Context, op string, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, op, errors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs("malformed request body"))
		return false
	}
	return true
}

// ListResourceClusters lists all persisted resource clusters.
// @Summary List resource clusters
// @Tags resource clusters
// @Produce json
// @Success 200
// @Failure 500
// @Router /api/v1/resourceClusters [get]
func (o *OpenAPI) ListResourceClusters(c *gin.Context) {
	writeResponse(c, "list", o.manager.List(),
		func(r *model.ListResourceClustersResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusOK)
}

// ProvisionResourceCluster persists a cluster spec and starts provisioning it.
// @Summary Provision a resource cluster
// @Tags resource clusters
// @Accept json
// @Produce json
// @Success 202
// @Failure 400,500
// @Router /api/v1/resourceClusters [post]
func (o *OpenAPI) ProvisionResourceCluster(c *gin.Context) {
	var req model.ProvisionResourceClusterRequest
	if !bindJSON(c, "provision", &req) {
		return
	}
	log.L().Info("provision resource cluster", zap.String("cluster-id", string(req.ClusterID)))
	writeResponse(c, "provision", o.manager.Provision(&req),
		func(r *model.ProvisionResourceClusterResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusAccepted)
}

// GetResourceCluster returns the persisted spec of a cluster.
// @Summary Get a resource cluster spec
// @Tags resource clusters
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 200
// @Failure 400,404,500
// @Router /api/v1/resourceClusters/{cluster_id} [get]
func (o *OpenAPI) GetResourceCluster(c *gin.Context) {
	id := model.ClusterID(c.Param(apiOpVarClusterID))
	writeResponse(c, "get", o.manager.GetSpec(id),
		func(r *model.GetResourceClusterResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusOK)
}

// DeleteResourceCluster removes the persisted spec of a cluster.
// @Summary Delete a resource cluster spec
// @Tags resource clusters
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 200
// @Failure 400,500
// @Router /api/v1/resourceClusters/{cluster_id} [delete]
func (o *OpenAPI) DeleteResourceCluster(c *gin.Context) {
	id := model.ClusterID(c.Param(apiOpVarClusterID))
	log.L().Info("delete resource cluster", zap.String("cluster-id", string(id)))
	writeResponse(c, "delete", o.manager.Delete(id),
		func(r *model.DeleteResourceClusterResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusOK)
}

// ScaleSku resizes one sku of a cluster. The cluster id of the path wins
// over the one of the body.
// @Summary Scale a sku
// @Tags resource clusters
// @Accept json
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 202
// @Failure 400,500
// @Router /api/v1/resourceClusters/{cluster_id}/scaleSku [post]
func (o *OpenAPI) ScaleSku(c *gin.Context) {
	var req model.ScaleResourceRequest
	if !bindJSON(c, "scale", &req) {
		return
	}
	req.ClusterID = model.ClusterID(c.Param(apiOpVarClusterID))
	writeResponse(c, "scale", o.manager.Scale(&req),
		func(r *model.ScaleResourceResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusAccepted)
}

// GetProvisionStatus returns the outcome of the last provisioning.
// @Summary Get the provision status of a cluster
// @Tags resource clusters
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 200
// @Failure 404,500
// @Router /api/v1/resourceClusters/{cluster_id}/provisionStatus [get]
func (o *OpenAPI) GetProvisionStatus(c *gin.Context) {
	id := model.ClusterID(c.Param(apiOpVarClusterID))
	writeResponse(c, "provision-status", o.manager.ProvisionStatus(id),
		func(r *model.ProvisionStatusResponse) model.BaseResponse { return r.BaseResponse },
		http.StatusOK)
}

// queryCluster writes the value of the query made on the cluster of the path.
func queryCluster[T any](
	c *gin.Context, o *OpenAPI, op string, query func(rc resourcecluster.ResourceCluster) *future.Future[T],
) {
	rc, err := o.clusters.LookupCluster(model.ClusterID(c.Param(apiOpVarClusterID)))
	if err != nil {
		writeError(c, op, err)
		return
	}
	val, err := query(rc).Get(c.Request.Context())
	if err != nil {
		writeError(c, op, err)
		return
	}
	observeResponse(op, model.ResponseCodeSuccess)
	c.JSON(http.StatusOK, val)
}

// GetResourceOverview returns the executor counters of a cluster.
// @Summary Get the resource overview of a cluster
// @Tags task executors
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 200
// @Failure 400,404,500
// @Router /api/v1/resourceClusters/{cluster_id}/getResourceOverview [get]
func (o *OpenAPI) GetResourceOverview(c *gin.Context) {
	queryCluster(c, o, "overview", resourcecluster.ResourceCluster.GetResourceOverview)
}

func (o *OpenAPI) listExecutors(
	query func(rc resourcecluster.ResourceCluster) *future.Future[[]model.TaskExecutorID],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		queryCluster(c, o, "list-executors", query)
	}
}

// AssignTaskExecutor reserves an executor for a worker.
// @Summary Assign a task executor
// @Tags task executors
// @Accept json
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Success 200
// @Failure 400,404,500,503
// @Router /api/v1/resourceClusters/{cluster_id}/taskExecutors/assign [post]
func (o *OpenAPI) AssignTaskExecutor(c *gin.Context) {
	var req AssignTaskExecutorRequest
	if !bindJSON(c, "assign", &req) {
		return
	}
	rc, err := o.clusters.LookupCluster(model.ClusterID(c.Param(apiOpVarClusterID)))
	if err != nil {
		writeError(c, "assign", err)
		return
	}
	id, err := rc.GetTaskExecutorFor(req.MachineDefinition, req.WorkerID).Get(c.Request.Context())
	if err != nil {
		writeError(c, "assign", err)
		return
	}
	observeResponse("assign", model.ResponseCodeSuccess)
	c.JSON(http.StatusOK, &AssignTaskExecutorResponse{TaskExecutorID: id})
}

// GetTaskExecutorInfo returns the registration of an executor.
// @Summary Get a task executor
// @Tags task executors
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Param executor_id path string true "task executor id"
// @Success 200
// @Failure 404,500
// @Router /api/v1/resourceClusters/{cluster_id}/taskExecutors/{executor_id} [get]
func (o *OpenAPI) GetTaskExecutorInfo(c *gin.Context) {
	id := model.TaskExecutorID(c.Param(apiOpVarExecutorID))
	queryCluster(c, o, "executor-info",
		func(rc resourcecluster.ResourceCluster) *future.Future[*model.TaskExecutorRegistration] {
			return rc.GetTaskExecutorInfo(id)
		})
}

// GetTaskExecutorState returns the status of an executor.
// @Summary Get the state of a task executor
// @Tags task executors
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Param executor_id path string true "task executor id"
// @Success 200
// @Failure 404,500
// @Router /api/v1/resourceClusters/{cluster_id}/taskExecutors/{executor_id}/getTaskExecutorState [get]
func (o *OpenAPI) GetTaskExecutorState(c *gin.Context) {
	id := model.TaskExecutorID(c.Param(apiOpVarExecutorID))
	queryCluster(c, o, "executor-state",
		func(rc resourcecluster.ResourceCluster) *future.Future[*model.TaskExecutorStatus] {
			return rc.GetTaskExecutorState(id)
		})
}

// GetTaskExecutorInfoByHostname returns the registration of the executor on a host.
// @Summary Get the task executor of a host
// @Tags task executors
// @Produce json
// @Param cluster_id path string true "cluster id"
// @Param hostname path string true "hostname"
// @Success 200
// @Failure 404,500
// @Router /api/v1/resourceClusters/{cluster_id}/hosts/{hostname} [get]
func (o *OpenAPI) GetTaskExecutorInfoByHostname(c *gin.Context) {
	hostname := c.Param(apiOpVarHostname)
	queryCluster(c, o, "executor-info",
		func(rc resourcecluster.ResourceCluster) *future.Future[*model.TaskExecutorRegistration] {
			return rc.GetTaskExecutorInfoByHostname(hostname)
		})
}
