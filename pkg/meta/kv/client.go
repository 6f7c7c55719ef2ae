package kv

import (
	"context"
	"time"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/implement/etcdkv"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/kvclient"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv/namespace"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
)

// prefixKVClient is a namespaced kvclient.KVClient.
// etcdImpl -> kvPrefix+Closer -> prefixKVClient
type prefixKVClient struct {
	kvclient.Client
	kvclient.KVEx
}

// NewKVClient return an etcd kvclient without namespace
func NewKVClient(conf *metaclient.StoreConfigParams) (kvclient.KVClientEx, error) {
	return etcdkv.NewEtcdImpl(conf)
}

// NewPrefixKVClient return a kvclient with namespace.
// Closing the returned client closes cli.
func NewPrefixKVClient(cli kvclient.KVClientEx, ns string) kvclient.KVClientEx {
	return &prefixKVClient{
		Client: cli,
		KVEx:   namespace.NewPrefixKV(cli, MakeNamespacePrefix(ns)),
	}
}

// MakeNamespacePrefix returns the key prefix of a namespace.
func MakeNamespacePrefix(ns string) string {
	return "/" + ns + "/"
}

// Ping checks the connectivity of a metastore by reading a key.
func Ping(ctx context.Context, cli kvclient.KV) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, "ping"); err != nil {
		return errors.Trace(err)
	}
	return nil
}
