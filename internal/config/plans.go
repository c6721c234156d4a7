package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Plan tiers for user credit profiles.
const (
	PlanNone = "none"
	PlanFree = "free"
	PlanPro  = "pro"
)

// PlanGrant maps a payment-provider product to a plan and its monthly credits.
type PlanGrant struct {
	ProductID      string `mapstructure:"productId"`
	Plan           string `mapstructure:"plan"`
	MonthlyCredits int64  `mapstructure:"monthlyCredits"`
}

// SignupGrant is the credit grant applied when a profile is lazily created.
// The default grant is a business decision: operators can set credits to 0
// to require a purchase before the first request.
type SignupGrant struct {
	Plan    string `mapstructure:"plan"`
	Credits int64  `mapstructure:"credits"`
}

// PlanConfig is the externalized credit-grant policy.
type PlanConfig struct {
	SignupGrant SignupGrant `mapstructure:"signupGrant"`
	Grants      []PlanGrant `mapstructure:"grants"`
}

// GrantForProduct resolves the grant for a provider product id, if recognized.
func (c PlanConfig) GrantForProduct(productID string) (PlanGrant, bool) {
	productID = strings.TrimSpace(productID)
	for _, grant := range c.Grants {
		if grant.ProductID == productID {
			return grant, true
		}
	}
	return PlanGrant{}, false
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		SignupGrant: SignupGrant{Plan: PlanFree, Credits: 5},
		Grants: []PlanGrant{
			{ProductID: "pdt_0NYUd1mVCB0vEvtCFFj0r", Plan: PlanPro, MonthlyCredits: 50},
		},
	}
}

// PlanConfigHolder provides hot-reloadable access to the plan policy.
type PlanConfigHolder struct {
	current atomic.Value // holds PlanConfig
}

func NewPlanConfigHolder(logger *zap.Logger) (*PlanConfigHolder, error) {
	log := logger.Named("config.plans")
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/scyra/config")
	v.AddConfigPath("/etc/scyra")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCYRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPlanConfig()
		v.SetDefault("plans.signupGrant", defaults.SignupGrant)
		v.SetDefault("plans.grants", defaults.Grants)
	}

	var cfg PlanConfig
	if err := v.UnmarshalKey("plans", &cfg); err != nil {
		return nil, err
	}
	if err := validatePlanConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PlanConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanConfig
		if err := v.UnmarshalKey("plans", &updated); err != nil {
			log.Warn("plan config reload failed", zap.Error(err))
			return
		}
		if err := validatePlanConfig(updated); err != nil {
			log.Warn("invalid plan config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticPlanConfigHolder wraps a fixed policy, used by tests.
func NewStaticPlanConfigHolder(cfg PlanConfig) *PlanConfigHolder {
	holder := &PlanConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PlanConfigHolder) Get() PlanConfig {
	return h.current.Load().(PlanConfig)
}

func validatePlanConfig(cfg PlanConfig) error {
	if cfg.SignupGrant.Credits < 0 {
		return errors.New("plans.signupGrant.credits cannot be negative")
	}
	switch cfg.SignupGrant.Plan {
	case PlanNone, PlanFree, PlanPro:
	default:
		return errors.New("plans.signupGrant.plan must be none, free or pro")
	}
	for _, grant := range cfg.Grants {
		if strings.TrimSpace(grant.ProductID) == "" {
			return errors.New("plans.grants productId cannot be empty")
		}
		if grant.MonthlyCredits <= 0 {
			return errors.New("plans.grants monthlyCredits must be positive")
		}
	}
	return nil
}
