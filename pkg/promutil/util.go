package promutil

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routine to get a Factory:
// 1. Every process keeps one Registry, only metrics of that Registry are
// served by HTTPHandlerForMetric.
// 2. A component asks for the Factory of its role and creates its metrics
// with it, without caring about registration. Similar to promauto.

const (
	systemID = "system"
	masterID = "rc-master"
)

const (
	constLabelComponentKey = "component"
	// constLabelClusterKey and constLabelExecutorKey identify the metrics of one executor
	constLabelClusterKey  = "cluster_id"
	constLabelExecutorKey = "executor_id"
)

// HTTPHandlerForMetric return http.Handler for prometheus metric
func HTTPHandlerForMetric() http.Handler {
	return promhttp.HandlerFor(
		globalMetricGatherer,
		promhttp.HandlerOpts{},
	)
}

// NewFactory4Master returns the Factory of the resource cluster manager.
func NewFactory4Master() Factory {
	return &wrappingFactory{
		r:  globalMetricRegistry,
		id: masterID,
		constLabels: prometheus.Labels{
			constLabelComponentKey: masterID,
		},
	}
}

// NewFactory4Executor returns the Factory of a task executor agent. All its
// metrics are removed by UnregisterExecutor.
func NewFactory4Executor(clusterID, executorID string) Factory {
	return &wrappingFactory{
		r:  globalMetricRegistry,
		id: executorID,
		constLabels: prometheus.Labels{
			constLabelClusterKey:  clusterID,
			constLabelExecutorKey: executorID,
		},
	}
}

// UnregisterExecutor removes the metrics created by NewFactory4Executor.
func UnregisterExecutor(executorID string) {
	globalMetricRegistry.Unregister(executorID)
}
