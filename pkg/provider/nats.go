package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const (
	defaultNATSSubjectPrefix = "rcm.provider"
	defaultNATSTimeout       = 5 * time.Second
)

// NATSConfig configures a NATSProvider.
type NATSConfig struct {
	URL           string `toml:"url" json:"url"`
	SubjectPrefix string `toml:"subject-prefix" json:"subject-prefix"`
	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration `toml:"connect-timeout" json:"connect-timeout"`
}

// Adjust fills the defaults.
func (c *NATSConfig) Adjust() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultNATSSubjectPrefix
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultNATSTimeout
	}
}

// ProvisionSubject is where provision requests are sent.
func (c *NATSConfig) ProvisionSubject() string {
	return c.SubjectPrefix + ".provision"
}

// ScaleSubject is where scale requests are sent.
func (c *NATSConfig) ScaleSubject() string {
	return c.SubjectPrefix + ".scale"
}

// ResultSubject is where provisioning outcomes are published.
func (c *NATSConfig) ResultSubject() string {
	return c.SubjectPrefix + ".provision.result"
}

// NATSProvider forwards requests to an external provisioning service with
// NATS request/reply. Outcomes are published back on the result subject.
type NATSProvider struct {
	conf    NATSConfig
	nc      *nats.Conn
	ownConn bool
}

// DialNATSProvider connects to conf.URL and creates a NATSProvider owning
// the connection.
func DialNATSProvider(conf NATSConfig) (*NATSProvider, error) {
	conf.Adjust()
	nc, err := nats.Connect(conf.URL,
		nats.Name("rcm-provider"),
		nats.Timeout(conf.ConnectTimeout))
	if err != nil {
		return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("connect")
	}
	p := NewNATSProvider(conf, nc)
	p.ownConn = true
	return p, nil
}

// NewNATSProvider creates a NATSProvider on an existing connection.
func NewNATSProvider(conf NATSConfig, nc *nats.Conn) *NATSProvider {
	conf.Adjust()
	return &NATSProvider{conf: conf, nc: nc}
}

func (p *NATSProvider) request(ctx context.Context, op, subject string, req, resp interface{}) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.ErrEncodeFailed.Wrap(err).GenWithStackByArgs(op + " request")
	}
	msg, err := p.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs(op)
	}
	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return errors.ErrDecodeFailed.Wrap(err).GenWithStackByArgs(op + " response")
	}
	return nil
}

// ProvisionClusterIfNotPresent implements Provider.
func (p *NATSProvider) ProvisionClusterIfNotPresent(
	ctx context.Context, req *model.ProvisionResourceClusterRequest,
) (*model.ProvisionSubmissionResponse, error) {
	resp := &model.ProvisionSubmissionResponse{}
	if err := p.request(ctx, "provision", p.conf.ProvisionSubject(), req, resp); err != nil {
		return nil, err
	}
	if resp.ClusterID == "" {
		resp.ClusterID = req.ClusterID
	}
	return resp, nil
}

// ScaleResource implements Provider.
func (p *NATSProvider) ScaleResource(
	ctx context.Context, req *model.ScaleResourceRequest,
) (*model.ScaleResourceResponse, error) {
	resp := &model.ScaleResourceResponse{}
	if err := p.request(ctx, "scale", p.conf.ScaleSubject(), req, resp); err != nil {
		return nil, err
	}
	if resp.ResponseCode == "" {
		resp.ResponseCode = model.ResponseCodeSuccess
	}
	return resp, nil
}

// ResponseHandler implements Provider.
func (p *NATSProvider) ResponseHandler() ResponseHandler {
	return &natsResponseHandler{nc: p.nc, subject: p.conf.ResultSubject()}
}

// Close implements Provider.
func (p *NATSProvider) Close() error {
	if p.ownConn {
		p.nc.Close()
	}
	return nil
}

type natsResponseHandler struct {
	nc      *nats.Conn
	subject string
}

func (h *natsResponseHandler) HandleProvisionResponse(resp *model.ProvisionSubmissionResponse) {
	LoggingResponseHandler{}.HandleProvisionResponse(resp)
	data, err := json.Marshal(resp)
	if err != nil {
		log.L().Warn("encode provisioning outcome failed", zap.Error(err))
		return
	}
	if err := h.nc.Publish(h.subject, data); err != nil {
		log.L().Warn("publish provisioning outcome failed",
			zap.String("cluster-id", string(resp.ClusterID)),
			zap.String("subject", h.subject),
			zap.Error(err))
	}
}
