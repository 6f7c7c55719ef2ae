package executor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanfei1991/rcmanager/pkg/promutil"
)

type executorMetrics struct {
	heartbeatCounter    *prometheus.CounterVec
	registrationCounter *prometheus.CounterVec
}

func newExecutorMetrics(factory promutil.Factory) *executorMetrics {
	return &executorMetrics{
		heartbeatCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rcm",
			Subsystem: "executor",
			Name:      "heartbeats_total",
			Help:      "Heartbeats sent to the master by result",
		}, []string{"result"}),
		registrationCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rcm",
			Subsystem: "executor",
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		}, []string{"result"}),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
