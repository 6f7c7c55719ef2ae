package kv

import (
	"context"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/mockclient"
)

func TestPrefixKVClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := mockclient.NewMetaMock()
	cli := NewPrefixKVClient(backend, "resource-clusters")
	defer cli.Close()

	_, err := cli.Put(ctx, "c1", "spec")
	require.NoError(t, err)

	raw, err := backend.Get(ctx, "/resource-clusters/c1")
	require.NoError(t, err)
	require.Len(t, raw.Kvs, 1)

	rsp, err := cli.Get(ctx, "", kvclient.WithPrefix())
	require.NoError(t, err)
	require.Len(t, rsp.Kvs, 1)
	require.Equal(t, "c1", string(rsp.Kvs[0].Key))

	require.NoError(t, Ping(ctx, cli))
	backend.SetError(errors.New("down"))
	require.Error(t, Ping(ctx, cli))
}
