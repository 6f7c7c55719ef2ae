package executor

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/clock"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/natsutil"
	"github.com/hanfei1991/rcmanager/pkg/promutil"
)

const (
	disconnectTimeout   = 3 * time.Second
	httpShutdownTimeout = 3 * time.Second
)

// Status is served on the status address.
type Status struct {
	Registration *model.TaskExecutorRegistration `json:"registration"`
	OccupiedBy   model.OptionalWorkerID          `json:"occupiedBy"`
	Registered   bool                            `json:"registered"`
}

// Server is a task executor. It registers itself to the master of its
// cluster and keeps the registration alive with heartbeats.
type Server struct {
	cfg *Config
	clk clock.Clock

	nc  *nats.Conn
	cli *MasterClient

	registration *model.TaskExecutorRegistration
	metrics      *executorMetrics

	mu         sync.Mutex
	occupiedBy model.OptionalWorkerID
	registered bool

	// consecutive failed heartbeats
	missed int
}

// NewServer creates a task executor server.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg: cfg,
		clk: clock.New(),
	}
}

// SetOccupiedBy sets the worker reported by the next heartbeats.
func (s *Server) SetOccupiedBy(workerID model.OptionalWorkerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occupiedBy = workerID
}

// Status returns a snapshot of the executor.
func (s *Server) Status() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Status{
		Registration: s.registration,
		OccupiedBy:   s.occupiedBy,
		Registered:   s.registered,
	}
}

func (s *Server) setRegistered(registered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = registered
}

func (s *Server) init() error {
	md, err := DetectMachineDefinition(s.cfg.Machine, s.cfg.WorkerPorts, s.cfg.DataDir)
	if err != nil {
		return err
	}
	s.registration = &model.TaskExecutorRegistration{
		TaskExecutorID:    model.TaskExecutorID(s.cfg.TaskExecutorID),
		ClusterID:         model.ClusterID(s.cfg.ClusterID),
		Address:           s.cfg.Address,
		Hostname:          s.cfg.Hostname,
		WorkerPorts:       s.cfg.WorkerPorts,
		MachineDefinition: md,
	}
	s.metrics = newExecutorMetrics(promutil.NewFactory4Executor(s.cfg.ClusterID, s.cfg.TaskExecutorID))

	if s.cli == nil {
		nc, err := natsutil.Connect(s.cfg.Master.URL, "rc-executor-"+s.cfg.TaskExecutorID, s.cfg.Master.RequestTimeout)
		if err != nil {
			return err
		}
		s.nc = nc
		s.cli = NewMasterClient(s.cfg.Master, nc)
	}
	log.L().Info("task executor initialized",
		zap.String("executor-id", s.cfg.TaskExecutorID),
		zap.String("cluster-id", s.cfg.ClusterID),
		zap.Stringer("machine", md))
	return nil
}

// register retries registration with exponential backoff until it succeeds,
// the registration is rejected, RegisterTimeout passes or ctx is done.
func (s *Server) register(ctx context.Context) error {
	s.setRegistered(false)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = s.cfg.Heartbeat.Interval
	bo.MaxElapsedTime = s.cfg.RegisterTimeout
	bo.Reset()

	err := backoff.RetryNotify(func() error {
		err := s.cli.Register(ctx, s.registration)
		s.metrics.registrationCounter.WithLabelValues(resultLabel(err)).Inc()
		if errors.ErrInvalidArgument.Equal(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.L().Warn("register task executor failed, will retry",
			zap.String("executor-id", s.cfg.TaskExecutorID),
			zap.Duration("retry-after", next),
			zap.Error(err))
	})
	if err != nil {
		if ctx.Err() != nil {
			return errors.Trace(ctx.Err())
		}
		return errors.ErrAgentRegisterFail.Wrap(err).GenWithStackByArgs(s.cfg.TaskExecutorID)
	}
	s.missed = 0
	s.setRegistered(true)
	log.L().Info("task executor registered",
		zap.String("executor-id", s.cfg.TaskExecutorID),
		zap.String("cluster-id", s.cfg.ClusterID))
	return nil
}

func (s *Server) heartbeat(ctx context.Context) error {
	s.mu.Lock()
	occupiedBy := s.occupiedBy
	s.mu.Unlock()

	err := s.cli.Heartbeat(ctx, &model.TaskExecutorHeartbeat{
		TaskExecutorID: s.registration.TaskExecutorID,
		ClusterID:      s.registration.ClusterID,
		Timestamp:      s.clk.Mono().Milliseconds(),
		Report:         model.TaskExecutorReport{OccupiedBy: occupiedBy},
	})
	s.metrics.heartbeatCounter.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		s.missed = 0
		return nil
	}

	s.missed++
	log.L().Warn("heartbeat failed",
		zap.String("executor-id", s.cfg.TaskExecutorID),
		zap.Int("missed", s.missed),
		zap.Error(err))
	if errors.ErrUnknownTaskExecutor.Equal(err) || s.missed >= s.cfg.Heartbeat.TolerableMissed {
		// the master has forgotten this executor or cannot be reached
		return s.register(ctx)
	}
	return nil
}

func (s *Server) heartbeatLoop(ctx context.Context) error {
	ticker := s.clk.Ticker(s.cfg.Heartbeat.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.heartbeat(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (s *Server) serveStatus(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.StatusAddr)
	if err != nil {
		return errors.Annotate(err, "listen on "+s.cfg.StatusAddr)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promutil.HTTPHandlerForMetric()))
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return errors.Trace(err)
	}
	return nil
}

// Run registers the executor and sends heartbeats until ctx is done. The
// master is told about the shutdown before Run returns.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()
	if err := s.init(); err != nil {
		return err
	}
	if err := s.register(ctx); err != nil {
		return err
	}

	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return s.heartbeatLoop(gctx)
	})
	if s.cfg.StatusAddr != "" {
		wg.Go(func() error {
			return s.serveStatus(gctx)
		})
	}
	err := wg.Wait()

	dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if derr := s.cli.Disconnect(dctx, &model.TaskExecutorDisconnection{
		TaskExecutorID: s.registration.TaskExecutorID,
		ClusterID:      s.registration.ClusterID,
	}); derr != nil {
		log.L().Warn("disconnect from master failed",
			zap.String("executor-id", s.cfg.TaskExecutorID), zap.Error(derr))
	}
	s.setRegistered(false)
	return err
}

func (s *Server) close() {
	if s.nc != nil {
		s.nc.Close()
	}
	promutil.UnregisterExecutor(s.cfg.TaskExecutorID)
	log.L().Info("task executor exits", zap.String("executor-id", s.cfg.TaskExecutorID))
}
