package mockclient

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
)

const mockClusterID = "mock_cluster"

type entry struct {
	value          string
	createRevision int64
	modRevision    int64
}

// MetaMock is an in-memory kvclient.KVClientEx. Revisions behave like etcd:
// one global counter bumped by every mutation.
type MetaMock struct {
	sync.Mutex
	store    map[string]*entry
	revision int64

	// injected error returned by every call, if not nil
	err error
}

// NewMetaMock creates an empty MetaMock.
func NewMetaMock() *MetaMock {
	return &MetaMock{
		store: make(map[string]*entry),
	}
}

// SetError makes every following call fail with err. Pass nil to recover.
func (m *MetaMock) SetError(err error) {
	m.Lock()
	defer m.Unlock()
	m.err = err
}

func (m *MetaMock) header() *kvclient.ResponseHeader {
	return &kvclient.ResponseHeader{
		ClusterID: mockClusterID,
		Revision:  m.revision,
	}
}

func (m *MetaMock) Put(ctx context.Context, key, value string) (*kvclient.PutResponse, error) {
	rsp, err := m.Do(ctx, kvclient.OpPut(key, value))
	if err != nil {
		return nil, err
	}
	return rsp.Put(), nil
}

func (m *MetaMock) Get(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.GetResponse, error) {
	rsp, err := m.Do(ctx, kvclient.OpGet(key, opts...))
	if err != nil {
		return nil, err
	}
	return rsp.Get(), nil
}

func (m *MetaMock) Delete(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.DeleteResponse, error) {
	rsp, err := m.Do(ctx, kvclient.OpDelete(key, opts...))
	if err != nil {
		return nil, err
	}
	return rsp.Del(), nil
}

// Do implements kvclient.KVEx
func (m *MetaMock) Do(ctx context.Context, op kvclient.Op) (kvclient.OpResponse, error) {
	m.Lock()
	defer m.Unlock()

	if m.err != nil {
		return kvclient.OpResponse{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return kvclient.OpResponse{}, errors.ErrMetaOpFail.Wrap(err)
	}
	if err := op.CheckValidOp(); err != nil {
		return kvclient.OpResponse{}, err
	}

	switch {
	case op.IsPut():
		return m.putNoLock(op).OpResponse(), nil
	case op.IsGet():
		return m.getNoLock(op).OpResponse(), nil
	case op.IsDelete():
		return m.deleteNoLock(op).OpResponse(), nil
	}
	return kvclient.OpResponse{}, errors.ErrMetaOptionInvalid.GenWithStack("unrecognized op type: %d", op.T)
}

func (m *MetaMock) putNoLock(op kvclient.Op) *kvclient.PutResponse {
	m.revision++
	key := string(op.KeyBytes())
	e, ok := m.store[key]
	if !ok {
		e = &entry{createRevision: m.revision}
		m.store[key] = e
	}
	e.value = string(op.ValueBytes())
	e.modRevision = m.revision
	return &kvclient.PutResponse{Header: m.header()}
}

func (m *MetaMock) getNoLock(op kvclient.Op) *kvclient.GetResponse {
	keys := m.matchNoLock(op)
	if op.Limit() > 0 && int64(len(keys)) > op.Limit() {
		keys = keys[:op.Limit()]
	}
	ret := &kvclient.GetResponse{Header: m.header()}
	for _, k := range keys {
		e := m.store[k]
		ret.Kvs = append(ret.Kvs, &kvclient.KeyValue{
			Key:            []byte(k),
			Value:          []byte(e.value),
			CreateRevision: e.createRevision,
			ModRevision:    e.modRevision,
		})
	}
	return ret
}

func (m *MetaMock) deleteNoLock(op kvclient.Op) *kvclient.DeleteResponse {
	keys := m.matchNoLock(op)
	if len(keys) > 0 {
		m.revision++
	}
	for _, k := range keys {
		delete(m.store, k)
	}
	return &kvclient.DeleteResponse{Header: m.header(), Deleted: int64(len(keys))}
}

// matchNoLock returns the matched keys in ascending order.
func (m *MetaMock) matchNoLock(op kvclient.Op) []string {
	begin, end := op.KeyBytes(), op.RangeBytes()
	var keys []string
	for k := range m.store {
		kb := []byte(k)
		switch {
		case op.IsOptsWithFromKey() || (len(end) == 1 && end[0] == 0):
			if bytes.Compare(kb, begin) < 0 {
				continue
			}
		case len(end) > 0:
			if bytes.Compare(kb, begin) < 0 || bytes.Compare(kb, end) >= 0 {
				continue
			}
		default:
			if !bytes.Equal(kb, begin) {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MetaMock) Close() error {
	return nil
}
