package clusterstorage

import (
	"context"
	"strconv"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
)

// KVStorage stores one spec per key of a namespaced KV store. The version
// of a spec is the revision of its last modification, so it is never
// reused, not even after a delete.
type KVStorage struct {
	cli kvclient.KVClient
}

// NewKVStorage creates a KVStorage on cli. The keys of cli should be
// dedicated to resource cluster specs, see kv.NewPrefixKVClient.
func NewKVStorage(cli kvclient.KVClient) *KVStorage {
	return &KVStorage{cli: cli}
}

func (s *KVStorage) RegisterAndUpdateClusterSpec(
	ctx context.Context, spec *model.ResourceClusterSpecWritable,
) (*model.ResourceClusterSpecWritable, error) {
	stored, err := cloneWritable(spec)
	if err != nil {
		return nil, err
	}
	// the version is derived from the store, never persisted
	stored.Version = ""
	val, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}

	rsp, err := s.cli.Put(ctx, string(stored.ID), val)
	if err != nil {
		return nil, errors.Trace(err)
	}
	stored.Version = strconv.FormatInt(rsp.Header.Revision, 10)

	log.L().Debug("resource cluster spec is stored",
		zap.String("cluster-id", string(stored.ID)),
		zap.String("version", stored.Version))
	return stored, nil
}

func (s *KVStorage) GetResourceClusterSpecWritable(
	ctx context.Context, id model.ClusterID,
) (*model.ResourceClusterSpecWritable, error) {
	rsp, err := s.cli.Get(ctx, string(id))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(rsp.Kvs) == 0 {
		return nil, errors.ErrClusterSpecNotFound.GenWithStackByArgs(id)
	}
	return decodeKeyValue(rsp.Kvs[0])
}

func (s *KVStorage) GetRegisteredResourceClustersWritable(
	ctx context.Context,
) (map[model.ClusterID]*model.ResourceClusterSpecWritable, error) {
	rsp, err := s.cli.Get(ctx, "", kvclient.WithPrefix())
	if err != nil {
		return nil, errors.Trace(err)
	}
	ret := make(map[model.ClusterID]*model.ResourceClusterSpecWritable, len(rsp.Kvs))
	for _, kv := range rsp.Kvs {
		w, err := decodeKeyValue(kv)
		if err != nil {
			return nil, err
		}
		ret[w.ID] = w
	}
	return ret, nil
}

func (s *KVStorage) DeregisterCluster(ctx context.Context, id model.ClusterID) error {
	_, err := s.cli.Delete(ctx, string(id))
	return errors.Trace(err)
}

func (s *KVStorage) Close() error {
	return s.cli.Close()
}

func decodeKeyValue(kv *kvclient.KeyValue) (*model.ResourceClusterSpecWritable, error) {
	w, err := model.ResourceClusterSpecWritableFromJSON(kv.Value)
	if err != nil {
		return nil, err
	}
	w.Version = strconv.FormatInt(kv.ModRevision, 10)
	return w, nil
}
