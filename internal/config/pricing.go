package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig controls credit grants, job costs and payment conversion
// rates. It is hot-reloadable so rates can change without a redeploy.
type PricingConfig struct {
	RegistrationCredits int `mapstructure:"registrationCredits"`
	InviteRewardCredits int `mapstructure:"inviteRewardCredits"`
	InviteBonusCredits  int `mapstructure:"inviteBonusCredits"`
	InviteExpiryDays    int `mapstructure:"inviteExpiryDays"`
	JobCostCredits      int `mapstructure:"jobCostCredits"`

	StarsRate    int64 `mapstructure:"starsRate"`    // stars per package
	StarsCredits int   `mapstructure:"starsCredits"` // credits per package
	UPIRateINR   int64 `mapstructure:"upiRateInr"`
	UPICredits   int   `mapstructure:"upiCredits"`

	ImageTimeout time.Duration `mapstructure:"imageTimeout"`
	VideoTimeout time.Duration `mapstructure:"videoTimeout"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		RegistrationCredits: 1,
		InviteRewardCredits: 1,
		InviteBonusCredits:  1,
		InviteExpiryDays:    30,
		JobCostCredits:      1,
		StarsRate:           100,
		StarsCredits:        70,
		UPIRateINR:          59,
		UPICredits:          23,
		ImageTimeout:        5 * time.Minute,
		VideoTimeout:        10 * time.Minute,
	}
}

// PricingHolder stores the current pricing config behind an atomic.Value.
type PricingHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewPricingHolder reads pricing.yml and watches it for changes.
func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/swapforge/config")
	v.AddConfigPath("/etc/swapforge")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SWAPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.registrationCredits", defaults.RegistrationCredits)
	v.SetDefault("pricing.inviteRewardCredits", defaults.InviteRewardCredits)
	v.SetDefault("pricing.inviteBonusCredits", defaults.InviteBonusCredits)
	v.SetDefault("pricing.inviteExpiryDays", defaults.InviteExpiryDays)
	v.SetDefault("pricing.jobCostCredits", defaults.JobCostCredits)
	v.SetDefault("pricing.starsRate", defaults.StarsRate)
	v.SetDefault("pricing.starsCredits", defaults.StarsCredits)
	v.SetDefault("pricing.upiRateInr", defaults.UPIRateINR)
	v.SetDefault("pricing.upiCredits", defaults.UPICredits)
	v.SetDefault("pricing.imageTimeout", defaults.ImageTimeout)
	v.SetDefault("pricing.videoTimeout", defaults.VideoTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingHolder wraps a fixed config, for tests and tools.
func NewStaticPricingHolder(cfg PricingConfig) *PricingHolder {
	holder := &PricingHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.JobCostCredits <= 0 {
		return errors.New("pricing.jobCostCredits must be positive")
	}
	if cfg.StarsRate <= 0 || cfg.StarsCredits <= 0 {
		return errors.New("pricing stars rates must be positive")
	}
	if cfg.UPIRateINR <= 0 || cfg.UPICredits <= 0 {
		return errors.New("pricing upi rates must be positive")
	}
	if cfg.ImageTimeout <= 0 || cfg.VideoTimeout <= 0 {
		return errors.New("pricing job timeouts must be positive")
	}
	return nil
}
