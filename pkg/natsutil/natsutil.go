package natsutil

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// Connect dials url with reconnects enabled forever, connection state
// changes are logged.
func Connect(url, name string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.L().Warn("nats disconnected", zap.String("name", name), zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.L().Info("nats reconnected", zap.String("name", name), zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.ErrGatewayOpFail.Wrap(err).GenWithStackByArgs("connect " + url)
	}
	return nc, nil
}
