package servermaster

import (
	"context"
	"time"

	"github.com/pingcap/log"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const overviewQueryTimeout = 5 * time.Second

// clusterLister lists the clusters that have executors.
type clusterLister interface {
	ClusterGetter
	ClusterIDs() []model.ClusterID
}

// cronLogger adapts the global logger to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.L().Debug(msg, zap.Any("kvs", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.L().Error(msg, zap.Any("kvs", keysAndValues), zap.Error(err))
}

// overviewReporter logs the overview of every cluster on a cron schedule and
// exports it as gauges.
type overviewReporter struct {
	clusters clusterLister
	cron     *cron.Cron
}

func newOverviewReporter(schedule string, clusters clusterLister) (*overviewReporter, error) {
	r := &overviewReporter{
		clusters: clusters,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{}))),
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.report(context.Background()) }); err != nil {
		return nil, errors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs("overview-report-schedule " + schedule)
	}
	return r, nil
}

func (r *overviewReporter) report(ctx context.Context) {
	for _, id := range r.clusters.ClusterIDs() {
		rc, err := r.clusters.LookupCluster(id)
		if err != nil {
			// closed
			return
		}
		queryCtx, cancel := context.WithTimeout(ctx, overviewQueryTimeout)
		overview, err := rc.GetResourceOverview().Get(queryCtx)
		cancel()
		if err != nil {
			log.L().Warn("get resource overview failed", zap.String("cluster-id", string(id)), zap.Error(err))
			continue
		}
		observeOverview(id, overview)
		log.L().Info("resource overview",
			zap.String("cluster-id", string(id)),
			zap.Int64("registered", overview.NumRegisteredTaskExecutors),
			zap.Int64("available", overview.NumAvailableTaskExecutors),
			zap.Int64("occupied", overview.NumOccupiedTaskExecutors),
			zap.Int64("assigned", overview.NumAssignedTaskExecutors),
			zap.Int64("unregistered", overview.NumUnregisteredTaskExecutors))
	}
}

// Run reports until ctx is done.
func (r *overviewReporter) Run(ctx context.Context) error {
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
	return nil
}
