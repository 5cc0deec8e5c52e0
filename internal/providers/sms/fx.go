package sms

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMSGatewayURL == "" {
		return &NoOpProvider{}
	}
	return NewGateway(Config{
		GatewayURL: cfg.SMSGatewayURL,
		AuthToken:  cfg.SMSAuthToken,
		Sender:     cfg.SMSSender,
	})
}
