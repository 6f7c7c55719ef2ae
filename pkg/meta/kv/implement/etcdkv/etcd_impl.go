package etcdkv

import (
	"context"

	"github.com/pingcap/log"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
)

// EtcdImpl is the etcd implement of kvclient.KVClientEx
type EtcdImpl struct {
	cli *clientv3.Client
}

// NewEtcdImpl connects to the etcd cluster in conf.
func NewEtcdImpl(conf *metaclient.StoreConfigParams) (*EtcdImpl, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   conf.Endpoints,
		DialTimeout: conf.DialTimeout,
		Username:    conf.User,
		Password:    conf.Password,
		Logger:      log.L().With(zap.String("component", "etcd-client")),
	})
	if err != nil {
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}
	return NewEtcdImplFromClient(cli), nil
}

// NewEtcdImplFromClient wraps an existing etcd client, the client is
// closed by Close.
func NewEtcdImplFromClient(cli *clientv3.Client) *EtcdImpl {
	return &EtcdImpl{cli: cli}
}

func (c *EtcdImpl) Put(ctx context.Context, key, val string) (*kvclient.PutResponse, error) {
	op := kvclient.OpPut(key, val)
	return c.doPut(ctx, op)
}

func (c *EtcdImpl) doPut(ctx context.Context, op kvclient.Op) (*kvclient.PutResponse, error) {
	etcdResp, err := c.cli.Put(ctx, string(op.KeyBytes()), string(op.ValueBytes()))
	if err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	return makePutResp(etcdResp), nil
}

func (c *EtcdImpl) Get(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.GetResponse, error) {
	op := kvclient.OpGet(key, opts...)
	return c.doGet(ctx, op)
}

func (c *EtcdImpl) doGet(ctx context.Context, op kvclient.Op) (*kvclient.GetResponse, error) {
	if err := op.CheckValidOp(); err != nil {
		return nil, err
	}
	etcdResp, err := c.cli.Get(ctx, string(op.KeyBytes()), getEtcdOptions(op)...)
	if err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	return makeGetResp(etcdResp), nil
}

func (c *EtcdImpl) Delete(ctx context.Context, key string, opts ...kvclient.OpOption) (*kvclient.DeleteResponse, error) {
	op := kvclient.OpDelete(key, opts...)
	return c.doDelete(ctx, op)
}

func (c *EtcdImpl) doDelete(ctx context.Context, op kvclient.Op) (*kvclient.DeleteResponse, error) {
	if err := op.CheckValidOp(); err != nil {
		return nil, err
	}
	etcdResp, err := c.cli.Delete(ctx, string(op.KeyBytes()), getEtcdOptions(op)...)
	if err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	return makeDeleteResp(etcdResp), nil
}

// Do implements kvclient.KVEx
func (c *EtcdImpl) Do(ctx context.Context, op kvclient.Op) (kvclient.OpResponse, error) {
	switch {
	case op.IsGet():
		rsp, err := c.doGet(ctx, op)
		if err != nil {
			return kvclient.OpResponse{}, err
		}
		return rsp.OpResponse(), nil
	case op.IsPut():
		rsp, err := c.doPut(ctx, op)
		if err != nil {
			return kvclient.OpResponse{}, err
		}
		return rsp.OpResponse(), nil
	case op.IsDelete():
		rsp, err := c.doDelete(ctx, op)
		if err != nil {
			return kvclient.OpResponse{}, err
		}
		return rsp.OpResponse(), nil
	}
	return kvclient.OpResponse{}, errors.ErrMetaOptionInvalid.GenWithStack("unrecognized op type: %d", op.T)
}

func (c *EtcdImpl) Close() error {
	if c.cli != nil {
		return errors.Trace(c.cli.Close())
	}
	return nil
}
