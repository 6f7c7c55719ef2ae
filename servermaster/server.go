package servermaster

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/dig"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/clusterstorage"
	"github.com/hanfei1991/rcmanager/pkg/deps"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/natsutil"
	"github.com/hanfei1991/rcmanager/pkg/provider"
	"github.com/hanfei1991/rcmanager/servermaster/gateway"
	"github.com/hanfei1991/rcmanager/servermaster/hostmanager"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

const (
	gatewayConnectTimeout = 5 * time.Second
	httpShutdownTimeout   = 5 * time.Second
)

// Server is the resource cluster master. It owns the executor registries of
// all clusters, the cluster lifecycle manager and the surfaces in front of
// them.
type Server struct {
	cfg *Config
	clk clock.Clock

	storage  clusterstorage.StorageProvider
	provider provider.Provider
	clusters *resourcecluster.ResourceClusters
	manager  *hostmanager.Manager

	nc       *nats.Conn
	gateway  *gateway.Gateway
	reporter *overviewReporter

	listener net.Listener
	httpSrv  *http.Server

	readyCh  chan struct{}
	stopOnce sync.Once
}

type components struct {
	dig.In

	Storage  clusterstorage.StorageProvider
	Provider provider.Provider
	Clusters *resourcecluster.ResourceClusters
	Manager  *hostmanager.Manager
}

// NewServer creates a new master server.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:     cfg,
		clk:     clock.New(),
		readyCh: make(chan struct{}),
	}
}

// Ready is closed when the server accepts requests.
func (s *Server) Ready() <-chan struct{} {
	return s.readyCh
}

// HTTPAddr returns the address the HTTP API listens on. Only valid after Ready.
func (s *Server) HTTPAddr() string {
	return s.listener.Addr().String()
}

func (s *Server) buildComponents(ctx context.Context) error {
	d := deps.NewDeps()
	constructors := []interface{}{
		func() clock.Clock {
			return s.clk
		},
		func() (clusterstorage.StorageProvider, error) {
			return clusterstorage.NewStorageProvider(ctx, s.cfg.Storage)
		},
		func() (provider.Provider, error) {
			return provider.NewProvider(s.cfg.Provider)
		},
		func(clk clock.Clock) *resourcecluster.ResourceClusters {
			return resourcecluster.NewResourceClusters(s.cfg.ResourceCluster, clk)
		},
		func(storage clusterstorage.StorageProvider, prov provider.Provider) *hostmanager.Manager {
			return hostmanager.NewManager(s.cfg.Manager, storage, prov)
		},
	}
	for _, constructor := range constructors {
		if err := d.Provide(constructor); err != nil {
			return err
		}
	}

	var c components
	if err := d.Fill(&c); err != nil {
		return err
	}
	s.storage, s.provider, s.clusters, s.manager = c.Storage, c.Provider, c.Clusters, c.Manager
	return nil
}

func (s *Server) startGateway() error {
	if !s.cfg.Gateway.Enabled() {
		log.L().Info("executor gateway is disabled")
		return nil
	}
	nc, err := natsutil.Connect(s.cfg.Gateway.URL, "rc-master", gatewayConnectTimeout)
	if err != nil {
		return err
	}
	s.nc = nc
	s.gateway = gateway.NewGateway(s.cfg.Gateway, nc, s.clusters)
	return s.gateway.Start()
}

func (s *Server) startHTTP() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Annotate(err, "listen on "+s.cfg.Addr)
	}
	s.listener = l

	router := gin.New()
	router.Use(gin.Recovery())
	RegisterOpenAPIRoutes(router, NewOpenAPI(s.manager, s.clusters))
	s.httpSrv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (s *Server) init(ctx context.Context) error {
	if err := s.buildComponents(ctx); err != nil {
		return err
	}
	if s.cfg.OverviewReportSchedule != "" {
		reporter, err := newOverviewReporter(s.cfg.OverviewReportSchedule, s.clusters)
		if err != nil {
			return err
		}
		s.reporter = reporter
	}
	if err := s.startGateway(); err != nil {
		return err
	}
	return s.startHTTP()
}

// Run starts the server and blocks until ctx is done or a component fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.Stop()
	if err := s.init(ctx); err != nil {
		return err
	}

	wg, ctx := errgroup.WithContext(ctx)

	recv := s.clusters.SubscribeEvents()
	wg.Go(func() error {
		return watchExecutorEvents(ctx, recv)
	})

	wg.Go(func() error {
		err := s.httpSrv.Serve(s.listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Trace(err)
	})

	wg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return errors.Trace(s.httpSrv.Shutdown(shutdownCtx))
	})

	if s.reporter != nil {
		wg.Go(func() error {
			return s.reporter.Run(ctx)
		})
	}

	log.L().Info("resource cluster master started", zap.String("addr", s.HTTPAddr()))
	close(s.readyCh)
	return wg.Wait()
}

// Stop releases every component. It is called by Run on exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		var err error
		if s.gateway != nil {
			err = multierr.Append(err, s.gateway.Close())
		}
		if s.nc != nil {
			s.nc.Close()
		}
		if s.listener != nil && s.httpSrv == nil {
			err = multierr.Append(err, s.listener.Close())
		}
		if s.manager != nil {
			s.manager.Close()
		}
		if s.clusters != nil {
			s.clusters.Close()
		}
		if s.provider != nil {
			err = multierr.Append(err, s.provider.Close())
		}
		if s.storage != nil {
			err = multierr.Append(err, s.storage.Close())
		}
		if err != nil {
			log.L().Warn("stop resource cluster master with error", zap.Error(err))
		}
		log.L().Info("resource cluster master stopped")
	})
}
