package clusterstorage

import (
	"context"
	"sort"

	"github.com/hanfei1991/rcmanager/model"
)

//go:generate mockgen -destination mock/storage_mock.go -package mock github.com/hanfei1991/rcmanager/pkg/clusterstorage StorageProvider

// StorageProvider persists resource cluster specs. It owns the version of
// every spec: each successful write assigns a version that differs from all
// previous versions of the same cluster.
//
// Implementations must be safe for concurrent use.
type StorageProvider interface {
	// RegisterAndUpdateClusterSpec creates or replaces the spec of
	// spec.ID and returns the stored record with its new version.
	RegisterAndUpdateClusterSpec(ctx context.Context, spec *model.ResourceClusterSpecWritable) (*model.ResourceClusterSpecWritable, error)
	// GetResourceClusterSpecWritable returns ErrClusterSpecNotFound if the
	// cluster has no spec.
	GetResourceClusterSpecWritable(ctx context.Context, id model.ClusterID) (*model.ResourceClusterSpecWritable, error)
	// GetRegisteredResourceClustersWritable returns all stored specs.
	GetRegisteredResourceClustersWritable(ctx context.Context) (map[model.ClusterID]*model.ResourceClusterSpecWritable, error)
	// DeregisterCluster removes the spec. Removing an absent spec succeeds.
	DeregisterCluster(ctx context.Context, id model.ClusterID) error
	// Close releases the resources of the provider.
	Close() error
}

// Type is the kind of StorageProvider to build.
type Type string

// All storage types
const (
	TypeMemory Type = "memory"
	TypeEtcd   Type = "etcd"
	TypeSQL    Type = "sql"
)

// SortedRegisteredClusters projects the stored specs to their (id, version)
// pairs, sorted by id.
func SortedRegisteredClusters(specs map[model.ClusterID]*model.ResourceClusterSpecWritable) []model.RegisteredResourceCluster {
	ret := make([]model.RegisteredResourceCluster, 0, len(specs))
	for id, spec := range specs {
		ret = append(ret, model.RegisteredResourceCluster{ID: id, Version: spec.Version})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

func cloneWritable(w *model.ResourceClusterSpecWritable) (*model.ResourceClusterSpecWritable, error) {
	data, err := w.ToJSON()
	if err != nil {
		return nil, err
	}
	return model.ResourceClusterSpecWritableFromJSON([]byte(data))
}
