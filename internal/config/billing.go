package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds the operational knobs of the delinquency pipeline that
// operations may tune without redeploying: channel toggles and the sender
// identity used in reminder messages.
type BillingConfig struct {
	EmailEnabled bool   `mapstructure:"emailEnabled"`
	SMSEnabled   bool   `mapstructure:"smsEnabled"`
	SenderLabel  string `mapstructure:"senderLabel"`
	FromEmail    string `mapstructure:"fromEmail"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		EmailEnabled: true,
		SMSEnabled:   true,
		SenderLabel:  "Inside",
		FromEmail:    "",
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/cie")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.emailEnabled", defaults.EmailEnabled)
		v.SetDefault("billing.smsEnabled", defaults.SMSEnabled)
		v.SetDefault("billing.senderLabel", defaults.SenderLabel)
		v.SetDefault("billing.fromEmail", defaults.FromEmail)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// NewStaticBillingConfigHolder exists for tests and for callers that do not
// want file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.SenderLabel) == "" {
		return errors.New("billing.senderLabel cannot be empty")
	}
	return nil
}
