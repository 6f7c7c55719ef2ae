package namespace

import (
	"context"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
)

type kvPrefix struct {
	kvclient.KVEx
	pfx string
}

// NewPrefixKV wraps a KVEx instance so that all requests
// are prefixed with a given string.
func NewPrefixKV(kv kvclient.KVEx, prefix string) kvclient.KVEx {
	return &kvPrefix{kv, prefix}
}

func (kv *kvPrefix) Put(ctx context.Context, key, val string) (*kvclient.PutResponse, error) {
	if len(key) == 0 {
		return nil, errors.ErrMetaOptionInvalid.GenWithStack("empty key")
	}
	r, err := kv.KVEx.Do(ctx, kv.prefixOp(kvclient.OpPut(key, val)))
	if err != nil {
		return nil, err
	}
	return r.Put(), nil
}

func (kv *kvPrefix) Get(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.GetResponse, error) {
	op := kvclient.OpGet(key, opts...)
	if len(key) == 0 && !(op.IsOptsWithFromKey() || op.IsOptsWithPrefix()) {
		return nil, errors.ErrMetaOptionInvalid.GenWithStack("empty key")
	}
	r, err := kv.KVEx.Do(ctx, kv.prefixOp(op))
	if err != nil {
		return nil, err
	}
	get := r.Get()
	kv.unprefixGetResponse(get)
	return get, nil
}

func (kv *kvPrefix) Delete(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.DeleteResponse, error) {
	op := kvclient.OpDelete(key, opts...)
	if len(key) == 0 && !(op.IsOptsWithFromKey() || op.IsOptsWithPrefix()) {
		return nil, errors.ErrMetaOptionInvalid.GenWithStack("empty key")
	}
	r, err := kv.KVEx.Do(ctx, kv.prefixOp(op))
	if err != nil {
		return nil, err
	}
	return r.Del(), nil
}

func (kv *kvPrefix) Do(ctx context.Context, op kvclient.Op) (kvclient.OpResponse, error) {
	if len(op.KeyBytes()) == 0 {
		return kvclient.OpResponse{}, errors.ErrMetaOptionInvalid.GenWithStack("empty key")
	}
	r, err := kv.KVEx.Do(ctx, kv.prefixOp(op))
	if err != nil {
		return r, err
	}
	if r.Get() != nil {
		kv.unprefixGetResponse(r.Get())
	}
	return r, nil
}

// prefixOp rewrites op into the namespace. Prefix and from-key requests
// become range requests bounded by the namespace.
func (kv *kvPrefix) prefixOp(op kvclient.Op) kvclient.Op {
	begin, end := prefixInterval(kv.pfx, op.KeyBytes(), op.RangeBytes())
	var opts []kvclient.OpOption
	if len(end) > 0 {
		opts = append(opts, kvclient.WithRange(string(end)))
	}
	if op.Limit() > 0 {
		opts = append(opts, kvclient.WithLimit(op.Limit()))
	}
	switch {
	case op.IsPut():
		return kvclient.OpPut(string(begin), string(op.ValueBytes()))
	case op.IsGet():
		return kvclient.OpGet(string(begin), opts...)
	default:
		return kvclient.OpDelete(string(begin), opts...)
	}
}

func (kv *kvPrefix) unprefixGetResponse(resp *kvclient.GetResponse) {
	for i := range resp.Kvs {
		resp.Kvs[i].Key = resp.Kvs[i].Key[len(kv.pfx):]
	}
}

// prefixInterval maps [key, end) into the namespace. The special keys
// "\x00" (from-key) are bounded by the end of the namespace.
func prefixInterval(pfx string, key, end []byte) (pfxKey []byte, pfxEnd []byte) {
	pfxKey = make([]byte, len(pfx)+len(key))
	copy(pfxKey[copy(pfxKey, pfx):], key)

	if len(end) == 1 && end[0] == 0 {
		// the edge of the keyspace
		pfxEnd = []byte(kvclient.GetPrefixRangeEnd(pfx))
		if len(key) == 1 && key[0] == 0 {
			// the whole namespace
			pfxKey = []byte(pfx)
		}
		return pfxKey, pfxEnd
	}
	if len(end) >= 1 {
		pfxEnd = make([]byte, len(pfx)+len(end))
		copy(pfxEnd[copy(pfxEnd, pfx):], end)
	}
	return pfxKey, pfxEnd
}
