package servermaster

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/notifier"
	"github.com/hanfei1991/rcmanager/pkg/promutil"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

var (
	serverFactory = promutil.NewFactory4Master()

	executorEventCounter = serverFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcm",
			Subsystem: "server_master",
			Name:      "executor_events_total",
			Help:      "Membership changes of task executors",
		}, []string{"cluster_id", "event"})

	lifecycleResponseCounter = serverFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcm",
			Subsystem: "server_master",
			Name:      "lifecycle_responses_total",
			Help:      "Responses of resource cluster lifecycle requests by operation and code",
		}, []string{"op", "code"})

	clusterExecutorGauge = serverFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rcm",
			Subsystem: "server_master",
			Name:      "cluster_executors",
			Help:      "Task executors of a resource cluster by state, updated by the overview report",
		}, []string{"cluster_id", "state"})
)

func observeResponse(op string, code model.ResponseCode) {
	lifecycleResponseCounter.WithLabelValues(op, string(code)).Inc()
}

func observeOverview(id model.ClusterID, overview *model.ResourceOverview) {
	cluster := string(id)
	clusterExecutorGauge.WithLabelValues(cluster, "registered").Set(float64(overview.NumRegisteredTaskExecutors))
	clusterExecutorGauge.WithLabelValues(cluster, "available").Set(float64(overview.NumAvailableTaskExecutors))
	clusterExecutorGauge.WithLabelValues(cluster, "occupied").Set(float64(overview.NumOccupiedTaskExecutors))
	clusterExecutorGauge.WithLabelValues(cluster, "assigned").Set(float64(overview.NumAssignedTaskExecutors))
	clusterExecutorGauge.WithLabelValues(cluster, "unregistered").Set(float64(overview.NumUnregisteredTaskExecutors))
}

// watchExecutorEvents counts the events of recv until ctx is done or the
// clusters are closed.
func watchExecutorEvents(ctx context.Context, recv *notifier.Receiver[resourcecluster.Event]) error {
	defer recv.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-recv.C:
			if !ok {
				return nil
			}
			executorEventCounter.WithLabelValues(string(ev.ClusterID), ev.Tp.String()).Inc()
		}
	}
}
