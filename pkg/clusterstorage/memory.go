package clusterstorage

import (
	"context"
	"strconv"
	"sync"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/autoid"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// MemoryStorage keeps specs in memory. Versions come from one counter
// shared by all clusters.
type MemoryStorage struct {
	mu       sync.RWMutex
	specs    map[model.ClusterID]*model.ResourceClusterSpecWritable
	versions *autoid.IDAllocator
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		specs:    make(map[model.ClusterID]*model.ResourceClusterSpecWritable),
		versions: autoid.NewIDAllocator(0),
	}
}

func (s *MemoryStorage) RegisterAndUpdateClusterSpec(
	ctx context.Context, spec *model.ResourceClusterSpecWritable,
) (*model.ResourceClusterSpecWritable, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	stored, err := cloneWritable(spec)
	if err != nil {
		return nil, err
	}
	stored.Version = strconv.FormatInt(s.versions.AllocID(), 10)

	s.mu.Lock()
	s.specs[stored.ID] = stored
	s.mu.Unlock()

	return cloneWritable(stored)
}

func (s *MemoryStorage) GetResourceClusterSpecWritable(
	ctx context.Context, id model.ClusterID,
) (*model.ResourceClusterSpecWritable, error) {
	s.mu.RLock()
	stored, ok := s.specs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrClusterSpecNotFound.GenWithStackByArgs(id)
	}
	return cloneWritable(stored)
}

func (s *MemoryStorage) GetRegisteredResourceClustersWritable(
	ctx context.Context,
) (map[model.ClusterID]*model.ResourceClusterSpecWritable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make(map[model.ClusterID]*model.ResourceClusterSpecWritable, len(s.specs))
	for id, stored := range s.specs {
		w, err := cloneWritable(stored)
		if err != nil {
			return nil, err
		}
		ret[id] = w
	}
	return ret, nil
}

func (s *MemoryStorage) DeregisterCluster(ctx context.Context, id model.ClusterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.specs, id)
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
