package migration

import (
	authdomain "github.com/scyra/scyra/internal/auth/domain"
	billingdomain "github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/config"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	trendsdomain "github.com/scyra/scyra/internal/trends/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres deployments (sqlite dev mode) derive the schema
		// from the models directly.
		return conn.AutoMigrate(
			&authdomain.User{},
			&authdomain.Session{},
			&profiledomain.UserProfile{},
			&ledgerdomain.CreditTransaction{},
			&trendsdomain.TrendRequest{},
			&billingdomain.BillingEvent{},
		)
	}),
)
