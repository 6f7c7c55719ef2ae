package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/future"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

const (
	opRegister   = "register"
	opHeartbeat  = "heartbeat"
	opDisconnect = "disconnect"
)

// ClusterGetter resolves the ResourceCluster an executor message belongs to.
// Only a registration creates a cluster.
type ClusterGetter interface {
	GetClusterFor(id model.ClusterID) (resourcecluster.ResourceCluster, error)
	LookupCluster(id model.ClusterID) (resourcecluster.ResourceCluster, error)
}

// Gateway feeds registration, heartbeat and disconnect messages published by
// task executors into their ResourceCluster and replies with a
// model.BaseResponse when the message asks for one.
type Gateway struct {
	conf     Config
	nc       *nats.Conn
	clusters ClusterGetter

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewGateway creates a Gateway on an established connection.
func NewGateway(conf Config, nc *nats.Conn, clusters ClusterGetter) *Gateway {
	return &Gateway{
		conf:     conf,
		nc:       nc,
		clusters: clusters,
	}
}

// Start subscribes to the executor subjects.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	handlers := map[string]nats.MsgHandler{
		g.conf.RegisterSubject():   g.onRegister,
		g.conf.HeartbeatSubject():  g.onHeartbeat,
		g.conf.DisconnectSubject(): g.onDisconnect,
	}
	for subject, handler := range handlers {
		sub, err := g.nc.QueueSubscribe(subject, QueueGroup, handler)
		if err != nil {
			g.unsubscribeLocked()
			return errors.ErrGatewayOpFail.Wrap(err).GenWithStackByArgs("subscribe " + subject)
		}
		g.subs = append(g.subs, sub)
	}
	if err := g.nc.Flush(); err != nil {
		g.unsubscribeLocked()
		return errors.ErrGatewayOpFail.Wrap(err).GenWithStackByArgs("flush")
	}
	log.L().Info("executor gateway started",
		zap.String("url", g.nc.ConnectedUrl()),
		zap.String("subject-prefix", g.conf.SubjectPrefix))
	return nil
}

// Close stops receiving messages. The connection is left open.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unsubscribeLocked()
}

func (g *Gateway) unsubscribeLocked() error {
	var err error
	for _, sub := range g.subs {
		err = multierr.Append(err, sub.Unsubscribe())
	}
	g.subs = nil
	if err != nil {
		return errors.ErrGatewayOpFail.Wrap(err).GenWithStackByArgs("unsubscribe")
	}
	return nil
}

func (g *Gateway) onRegister(msg *nats.Msg) {
	var reg model.TaskExecutorRegistration
	g.serve(msg, opRegister, &reg, g.clusters.GetClusterFor,
		func() model.ClusterID { return reg.ClusterID },
		func(rc resourcecluster.ResourceCluster) *future.Future[struct{}] {
			return rc.RegisterTaskExecutor(&reg)
		})
}

func (g *Gateway) onHeartbeat(msg *nats.Msg) {
	var hb model.TaskExecutorHeartbeat
	g.serve(msg, opHeartbeat, &hb, g.clusters.LookupCluster,
		func() model.ClusterID { return hb.ClusterID },
		func(rc resourcecluster.ResourceCluster) *future.Future[struct{}] {
			return rc.HeartbeatFromTaskExecutor(&hb)
		})
}

func (g *Gateway) onDisconnect(msg *nats.Msg) {
	var d model.TaskExecutorDisconnection
	g.serve(msg, opDisconnect, &d, g.clusters.LookupCluster,
		func() model.ClusterID { return d.ClusterID },
		func(rc resourcecluster.ResourceCluster) *future.Future[struct{}] {
			return rc.DisconnectTaskExecutor(&d)
		})
}

type clusterResolver func(id model.ClusterID) (resourcecluster.ResourceCluster, error)

// serve decodes msg into v, which clusterOf and call read after decoding.
func (g *Gateway) serve(
	msg *nats.Msg,
	op string,
	v any,
	resolve clusterResolver,
	clusterOf func() model.ClusterID,
	call func(rc resourcecluster.ResourceCluster) *future.Future[struct{}],
) {
	err := g.apply(msg.Data, v, resolve, clusterOf, call)
	resp := model.BaseResponse{ResponseCode: model.ResponseCodeSuccess}
	if err != nil {
		resp = model.ErrorResponse(err)
		log.L().Warn("executor message failed",
			zap.String("op", op),
			zap.String("subject", msg.Subject),
			zap.String("code", string(resp.ResponseCode)),
			zap.Error(err))
	}
	gatewayMessageCounter.WithLabelValues(op, string(resp.ResponseCode)).Inc()

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(&resp)
	if err != nil {
		log.L().Error("encode gateway response failed", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		log.L().Warn("reply to executor failed", zap.String("op", op), zap.Error(err))
	}
}

func (g *Gateway) apply(
	data []byte,
	v any,
	resolve clusterResolver,
	clusterOf func() model.ClusterID,
	call func(rc resourcecluster.ResourceCluster) *future.Future[struct{}],
) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs("malformed executor message")
	}
	rc, err := resolve(clusterOf())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.conf.RequestTimeout)
	defer cancel()
	_, err = call(rc).Get(ctx)
	return err
}
