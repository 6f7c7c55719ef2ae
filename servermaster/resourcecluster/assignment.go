package resourcecluster

import (
	"github.com/google/btree"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const availableIndexDegree = 16

// availableIndex holds the available executors ordered by their first
// registration, so that the oldest executor is tried first.
type availableIndex struct {
	tree *btree.BTreeG[*executorState]
}

func newAvailableIndex() *availableIndex {
	return &availableIndex{
		tree: btree.NewG(availableIndexDegree, func(a, b *executorState) bool {
			return a.seq < b.seq
		}),
	}
}

func (idx *availableIndex) add(s *executorState) {
	idx.tree.ReplaceOrInsert(s)
}

func (idx *availableIndex) remove(s *executorState) {
	idx.tree.Delete(s)
}

func (idx *availableIndex) len() int {
	return idx.tree.Len()
}

// firstFit returns the oldest executor whose machine satisfies requested.
func (idx *availableIndex) firstFit(
	requested model.MachineDefinition, policy model.MatchPolicy,
) (*executorState, bool) {
	var found *executorState
	idx.tree.Ascend(func(s *executorState) bool {
		if s.registration.MachineDefinition.CanFit(requested, policy) {
			found = s
			return false
		}
		return true
	})
	return found, found != nil
}

// GetTaskExecutorFor reserves the oldest available executor that can host a
// worker of the requested shape. Every successful call takes one executor out
// of the available set, calling it again for the same worker reserves another
// one. The registry is left unchanged when nothing fits.
func (r *Registry) GetTaskExecutorFor(
	requested model.MachineDefinition, workerID model.WorkerID,
) (model.TaskExecutorID, error) {
	if err := requested.Validate(); err != nil {
		return "", err
	}
	if workerID == "" {
		return "", errors.ErrInvalidArgument.GenWithStackByArgs("worker id is empty")
	}

	s, ok := r.available.firstFit(requested, r.policy)
	if !ok {
		log.L().Warn("no task executor available",
			zap.String("cluster-id", string(r.clusterID)),
			zap.String("worker-id", string(workerID)),
			zap.Stringer("machine", requested),
			zap.Int("num-available", r.available.len()))
		return "", errors.ErrNoResourceAvailable.GenWithStackByArgs(r.clusterID, requested)
	}

	s.occupancy = occupancyAssigned
	s.workerID = workerID
	r.available.remove(s)

	id := s.registration.TaskExecutorID
	log.L().Info("task executor is assigned",
		zap.String("cluster-id", string(r.clusterID)),
		zap.String("executor-id", string(id)),
		zap.String("worker-id", string(workerID)),
		zap.Stringer("machine", requested))
	r.emit(EventAssigned, s)
	return id, nil
}
