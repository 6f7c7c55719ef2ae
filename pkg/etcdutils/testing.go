package etcdutils

import (
	"fmt"
	"net/url"
	"time"

	"github.com/phayes/freeport"
	"go.etcd.io/etcd/server/v3/embed"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// SetupEmbedEtcd starts a single node embedded etcd server in dir and
// returns the client url.
func SetupEmbedEtcd(dir string) (clientURL string, e *embed.Etcd, err error) {
	cfg := embed.NewConfig()
	cfg.Dir = dir

	ports, err := freeport.GetFreePorts(2)
	if err != nil {
		return "", nil, errors.Trace(err)
	}

	peerURL, err := url.Parse(fmt.Sprintf("http://127.0.0.1:%d", ports[0]))
	if err != nil {
		return "", nil, errors.Trace(err)
	}
	cliURL, err := url.Parse(fmt.Sprintf("http://127.0.0.1:%d", ports[1]))
	if err != nil {
		return "", nil, errors.Trace(err)
	}

	cfg.ListenPeerUrls = []url.URL{*peerURL}
	cfg.AdvertisePeerUrls = []url.URL{*peerURL}
	cfg.ListenClientUrls = []url.URL{*cliURL}
	cfg.AdvertiseClientUrls = []url.URL{*cliURL}
	cfg.InitialCluster = cfg.InitialClusterFromName(cfg.Name)
	cfg.Logger = "zap"
	cfg.LogLevel = "error"

	e, err = embed.StartEtcd(cfg)
	if err != nil {
		return "", nil, errors.Trace(err)
	}

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(60 * time.Second):
		e.Server.Stop() // trigger a shutdown
		e.Close()
		return "", nil, errors.New("embedded etcd took too long to start")
	}

	return cliURL.String(), e, nil
}

// CloseEmbedEtcd stops the embedded etcd server.
func CloseEmbedEtcd(e *embed.Etcd) {
	if e != nil {
		e.Server.Stop()
		e.Close()
	}
}
