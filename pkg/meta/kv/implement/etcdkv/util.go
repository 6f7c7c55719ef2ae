package etcdkv

import (
	"strconv"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
)

func makeHeader(clusterID uint64, revision int64) *kvclient.ResponseHeader {
	return &kvclient.ResponseHeader{
		ClusterID: strconv.FormatUint(clusterID, 10),
		Revision:  revision,
	}
}

func makePutResp(etcdResp *clientv3.PutResponse) *kvclient.PutResponse {
	return &kvclient.PutResponse{
		Header: makeHeader(etcdResp.Header.ClusterId, etcdResp.Header.Revision),
	}
}

func makeGetResp(etcdResp *clientv3.GetResponse) *kvclient.GetResponse {
	kvs := make([]*kvclient.KeyValue, 0, len(etcdResp.Kvs))
	for _, kv := range etcdResp.Kvs {
		kvs = append(kvs, &kvclient.KeyValue{
			Key:            kv.Key,
			Value:          kv.Value,
			CreateRevision: kv.CreateRevision,
			ModRevision:    kv.ModRevision,
		})
	}
	return &kvclient.GetResponse{
		Header: makeHeader(etcdResp.Header.ClusterId, etcdResp.Header.Revision),
		Kvs:    kvs,
	}
}

func makeDeleteResp(etcdResp *clientv3.DeleteResponse) *kvclient.DeleteResponse {
	return &kvclient.DeleteResponse{
		Header:  makeHeader(etcdResp.Header.ClusterId, etcdResp.Header.Revision),
		Deleted: etcdResp.Deleted,
	}
}

func getEtcdOptions(op kvclient.Op) []clientv3.OpOption {
	etcdOps := make([]clientv3.OpOption, 0, 2)
	switch {
	case op.IsOptsWithPrefix():
		etcdOps = append(etcdOps, clientv3.WithPrefix())
	case op.IsOptsWithFromKey():
		etcdOps = append(etcdOps, clientv3.WithFromKey())
	case op.IsOptsWithRange():
		etcdOps = append(etcdOps, clientv3.WithRange(string(op.RangeBytes())))
	}
	if op.Limit() != 0 {
		etcdOps = append(etcdOps, clientv3.WithLimit(op.Limit()))
	}
	return etcdOps
}
