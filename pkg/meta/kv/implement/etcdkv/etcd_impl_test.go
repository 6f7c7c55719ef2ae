package etcdkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/pkg/etcdutils"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
)

func newTestEtcdImpl(t *testing.T) *EtcdImpl {
	addr, svr, err := etcdutils.SetupEmbedEtcd(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { etcdutils.CloseEmbedEtcd(svr) })

	conf := &metaclient.StoreConfigParams{Endpoints: []string{addr}}
	conf.Adjust()
	cli, err := NewEtcdImpl(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestEtcdImplBasicKV(t *testing.T) {
	cli := newTestEtcdImpl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rsp, err := cli.Get(ctx, "hello")
	require.NoError(t, err)
	require.Empty(t, rsp.Kvs)

	put1, err := cli.Put(ctx, "hello", "world")
	require.NoError(t, err)
	put2, err := cli.Put(ctx, "hello", "world2")
	require.NoError(t, err)
	require.Greater(t, put2.Header.Revision, put1.Header.Revision)

	rsp, err = cli.Get(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 1)
	require.Equal(t, "world2", string(rsp.Kvs[0].Value))
	require.Equal(t, put2.Header.Revision, rsp.Kvs[0].ModRevision)

	del, err := cli.Delete(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, int64(1), del.Deleted)

	rsp, err = cli.Get(ctx, "hello")
	require.NoError(t, err)
	require.Empty(t, rsp.Kvs)
}

func TestEtcdImplRangeOptions(t *testing.T) {
	cli := newTestEtcdImpl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, k := range []string{"/a/1", "/a/2", "/a/3", "/b/1"} {
		_, err := cli.Put(ctx, k, "v"+k)
		require.NoError(t, err)
	}

	rsp, err := cli.Get(ctx, "/a/", kvclient.WithPrefix())
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 3)
	require.Equal(t, "/a/1", string(rsp.Kvs[0].Key))

	rsp, err = cli.Get(ctx, "/a/", kvclient.WithPrefix(), kvclient.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 2)

	rsp, err = cli.Get(ctx, "/a/2", kvclient.WithRange("/b/"))
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 2)

	rsp, err = cli.Get(ctx, "/a/3", kvclient.WithFromKey())
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 2)

	_, err = cli.Get(ctx, "/a/", kvclient.WithPrefix(), kvclient.WithFromKey())
	require.Error(t, err)

	del, err := cli.Delete(ctx, "/a/", kvclient.WithPrefix())
	require.NoError(t, err)
	require.Equal(t, int64(3), del.Deleted)

	opRsp, err := cli.Do(ctx, kvclient.OpGet("", kvclient.WithFromKey()))
	require.NoError(t, err)
	require.Len(t, opRsp.Get().Kvs, 1)
}
