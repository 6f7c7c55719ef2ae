package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanfei1991/rcmanager/pkg/promutil"
)

var (
	gatewayFactory = promutil.NewFactory4Master()

	gatewayMessageCounter = gatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcm",
			Subsystem: "gateway",
			Name:      "executor_messages_total",
			Help:      "Executor messages handled by the gateway, by operation and response code",
		}, []string{"op", "code"})
)
