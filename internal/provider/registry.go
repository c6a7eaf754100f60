// internal/provider/registry.go
package provider

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"notification-pipeline/internal/common/config"
	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/models"
)

// Registry is the static channel to provider lookup. Requesting a channel
// with no registered provider is a configuration error, never retried.
type Registry struct {
	providers map[models.Channel]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[models.Channel]Provider)}
}

func (r *Registry) Register(channel models.Channel, p Provider) {
	r.providers[channel] = p
}

func (r *Registry) Get(channel models.Channel) (Provider, *errors.StandardError) {
	p, ok := r.providers[channel]
	if !ok {
		return nil, errors.NewProviderNotConfiguredError(string(channel))
	}
	return p, nil
}

// NewRegistryFromConfig builds the production registry from provider
// configuration, sharing one AWS client config across backends.
func NewRegistryFromConfig(ctx context.Context, cfg config.ProvidersConfig) (*Registry, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	if cfg.Email.Enabled {
		registry.Register(models.ChannelEmail, NewEmailProvider(ses.NewFromConfig(awsCfg), cfg.Email.FromEmail))
	}
	if cfg.SMS.Enabled {
		snsClient := sns.NewFromConfig(awsCfg)
		registry.Register(models.ChannelSMS, NewSMSProvider(snsClient, cfg.SMS.SenderID))
	}
	if cfg.Push.Enabled {
		registry.Register(models.ChannelPush, NewPushProvider(sns.NewFromConfig(awsCfg)))
	}
	return registry, nil
}
