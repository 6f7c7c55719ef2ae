package executor

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/servermaster/gateway"
)

// MasterClient sends executor messages to the gateway of the master.
type MasterClient struct {
	conf     MasterConfig
	subjects gateway.Config
	nc       *nats.Conn
}

// NewMasterClient creates a MasterClient on an established connection.
func NewMasterClient(conf MasterConfig, nc *nats.Conn) *MasterClient {
	return &MasterClient{
		conf:     conf,
		subjects: gateway.Config{SubjectPrefix: conf.SubjectPrefix},
		nc:       nc,
	}
}

// request sends v and waits for the acknowledgement of the master.
func (c *MasterClient) request(ctx context.Context, subject string, v any) (model.BaseResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return model.BaseResponse{}, errors.ErrEncodeFailed.Wrap(err).GenWithStackByArgs(subject)
	}
	ctx, cancel := context.WithTimeout(ctx, c.conf.RequestTimeout)
	defer cancel()
	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return model.BaseResponse{}, errors.ErrGatewayOpFail.Wrap(err).GenWithStackByArgs(subject)
	}
	var resp model.BaseResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return model.BaseResponse{}, errors.ErrDecodeFailed.Wrap(err).GenWithStackByArgs(subject)
	}
	return resp, nil
}

// Register registers the executor. A CLIENT_ERROR reply means the
// registration can never succeed.
func (c *MasterClient) Register(ctx context.Context, reg *model.TaskExecutorRegistration) error {
	resp, err := c.request(ctx, c.subjects.RegisterSubject(), reg)
	if err != nil {
		return err
	}
	switch resp.ResponseCode {
	case model.ResponseCodeSuccess:
		return nil
	case model.ResponseCodeClientError:
		return errors.ErrInvalidArgument.GenWithStackByArgs(resp.Message)
	default:
		return errors.ErrAgentRegisterFail.GenWithStackByArgs(reg.TaskExecutorID)
	}
}

// Heartbeat sends a heartbeat. It fails with ErrUnknownTaskExecutor when the
// master does not know the executor.
func (c *MasterClient) Heartbeat(ctx context.Context, hb *model.TaskExecutorHeartbeat) error {
	resp, err := c.request(ctx, c.subjects.HeartbeatSubject(), hb)
	if err != nil {
		return err
	}
	switch resp.ResponseCode {
	case model.ResponseCodeSuccess:
		return nil
	case model.ResponseCodeClientErrorNotFound:
		return errors.ErrUnknownTaskExecutor.GenWithStackByArgs(hb.TaskExecutorID)
	default:
		return errors.ErrGatewayOpFail.GenWithStackByArgs("heartbeat: " + resp.Message)
	}
}

// Disconnect tells the master the executor is going away.
func (c *MasterClient) Disconnect(ctx context.Context, d *model.TaskExecutorDisconnection) error {
	resp, err := c.request(ctx, c.subjects.DisconnectSubject(), d)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return errors.ErrGatewayOpFail.GenWithStackByArgs("disconnect: " + resp.Message)
	}
	return nil
}
