package resourcecluster

import (
	"sort"
	"sync"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/notifier"
)

// ResourceClusters owns one ResourceCluster per ClusterID. Clusters are
// created by the first registration of an executor and run independently
// of each other.
type ResourceClusters struct {
	conf     Config
	clk      clock.Clock
	notifier *notifier.Notifier[Event]

	mu       sync.Mutex
	closed   bool
	clusters map[model.ClusterID]*cluster
}

// NewResourceClusters creates an empty ResourceClusters.
func NewResourceClusters(conf Config, clk clock.Clock) *ResourceClusters {
	return &ResourceClusters{
		conf:     conf,
		clk:      clk,
		notifier: notifier.NewNotifier[Event](),
		clusters: make(map[model.ClusterID]*cluster),
	}
}

// GetClusterFor returns the cluster of id, creating it if needed.
func (rc *ResourceClusters) GetClusterFor(id model.ClusterID) (ResourceCluster, error) {
	if id == "" {
		return nil, errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return nil, errors.ErrResourceClusterClosed.GenWithStackByArgs(id)
	}
	if c, ok := rc.clusters[id]; ok {
		return c, nil
	}
	c := newCluster(id, rc.conf, rc.clk, rc.notifier.Notify)
	c.start()
	rc.clusters[id] = c
	return c, nil
}

// LookupCluster returns the cluster of id. Unlike GetClusterFor it never
// creates one, a cluster nobody registered to is ErrResourceClusterNotFound.
func (rc *ResourceClusters) LookupCluster(id model.ClusterID) (ResourceCluster, error) {
	if id == "" {
		return nil, errors.ErrInvalidArgument.GenWithStackByArgs("cluster id is empty")
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return nil, errors.ErrResourceClusterClosed.GenWithStackByArgs(id)
	}
	c, ok := rc.clusters[id]
	if !ok {
		return nil, errors.ErrResourceClusterNotFound.GenWithStackByArgs(id)
	}
	return c, nil
}

// ClusterIDs returns the ids of the created clusters in lexical order.
func (rc *ResourceClusters) ClusterIDs() []model.ClusterID {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ret := make([]model.ClusterID, 0, len(rc.clusters))
	for id := range rc.clusters {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// SubscribeEvents returns a receiver of the membership changes of every
// cluster. The receiver must be closed by the caller.
func (rc *ResourceClusters) SubscribeEvents() *notifier.Receiver[Event] {
	return rc.notifier.NewReceiver()
}

// Close stops every cluster. Requests still queued fail with
// ErrResourceClusterClosed.
func (rc *ResourceClusters) Close() {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return
	}
	rc.closed = true
	clusters := make([]*cluster, 0, len(rc.clusters))
	for _, c := range rc.clusters {
		clusters = append(clusters, c)
	}
	rc.mu.Unlock()

	for _, c := range clusters {
		c.close()
	}
	rc.notifier.Close()
}
