package provider

import (
	"context"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// Type selects a Provider implementation.
type Type string

// All provider types
const (
	TypeNoop   Type = "noop"
	TypeLocal  Type = "local"
	TypeNATS   Type = "nats"
	TypeDocker Type = "docker"
)

const defaultBurst = 10

// Config selects and configures a Provider.
type Config struct {
	Type Type `toml:"type" json:"type"`
	// LocalDelay is how long the local provider takes to provision.
	LocalDelay time.Duration `toml:"local-delay" json:"local-delay"`
	// RateLimit is the number of remote calls per second, 0 means unlimited.
	RateLimit float64      `toml:"rate-limit" json:"rate-limit"`
	Burst     int          `toml:"burst" json:"burst"`
	NATS      NATSConfig   `toml:"nats" json:"nats"`
	Docker    DockerConfig `toml:"docker" json:"docker"`
}

// NewDefaultConfig returns a noop provider config.
func NewDefaultConfig() Config {
	return Config{Type: TypeNoop}
}

// Adjust validates c and fills the defaults.
func (c *Config) Adjust() error {
	if c.Type == "" {
		c.Type = TypeNoop
	}
	if c.RateLimit < 0 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("provider.rate-limit is negative")
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	switch c.Type {
	case TypeNoop, TypeLocal:
	case TypeNATS:
		c.NATS.Adjust()
	case TypeDocker:
		if c.Docker.Image == "" {
			return errors.ErrConfigInvalid.GenWithStackByArgs("provider.docker.image is empty")
		}
	default:
		return errors.ErrProviderTypeUnknown.GenWithStackByArgs(c.Type)
	}
	return nil
}

// NewProvider builds the Provider selected by conf.
func NewProvider(conf Config) (Provider, error) {
	log.L().Info("create resource cluster provider", zap.String("type", string(conf.Type)))

	var (
		p   Provider
		err error
	)
	switch conf.Type {
	case "", TypeNoop:
		return NewNoopProvider(), nil
	case TypeLocal:
		return NewLocalProvider(conf.LocalDelay, nil), nil
	case TypeNATS:
		p, err = DialNATSProvider(conf.NATS)
	case TypeDocker:
		p, err = DialDockerProvider(conf.Docker)
	default:
		return nil, errors.ErrProviderTypeUnknown.GenWithStackByArgs(conf.Type)
	}
	if err != nil {
		return nil, err
	}
	if conf.RateLimit > 0 {
		p = WithRateLimit(p, rate.NewLimiter(rate.Limit(conf.RateLimit), conf.Burst))
	}
	return p, nil
}

type rateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// WithRateLimit makes every provision and scale call wait for limiter first.
func WithRateLimit(p Provider, limiter *rate.Limiter) Provider {
	return &rateLimitedProvider{Provider: p, limiter: limiter}
}

func (p *rateLimitedProvider) ProvisionClusterIfNotPresent(
	ctx context.Context, req *model.ProvisionResourceClusterRequest,
) (*model.ProvisionSubmissionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("provision")
	}
	return p.Provider.ProvisionClusterIfNotPresent(ctx, req)
}

func (p *rateLimitedProvider) ScaleResource(
	ctx context.Context, req *model.ScaleResourceRequest,
) (*model.ScaleResourceResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.ErrProviderOpFail.Wrap(err).GenWithStackByArgs("scale")
	}
	return p.Provider.ScaleResource(ctx, req)
}
