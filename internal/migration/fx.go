package migration

import (
	authdomain "github.com/lumamail/backend/internal/auth/domain"
	"github.com/lumamail/backend/internal/config"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	paymentdomain "github.com/lumamail/backend/internal/payment/domain"
	"github.com/lumamail/backend/internal/seed"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
	verificationdomain "github.com/lumamail/backend/internal/verification/domain"
	walletdomain "github.com/lumamail/backend/internal/wallet/domain"
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
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations are written for postgres; other
			// dialects (local sqlite) get the schema from the models.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.Session{},
				&verificationdomain.VerificationCode{},
				&subscriptiondomain.SubscriptionPlan{},
				&subscriptiondomain.UserSubscription{},
				&usagedomain.UsagePeriod{},
				&walletdomain.Wallet{},
				&walletdomain.WalletTransaction{},
				&creditpackagedomain.Package{},
				&paymentdomain.EventRecord{},
				&paymentdomain.PaymentHistory{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsurePlans(conn); err != nil {
			return err
		}
		return seed.EnsurePackages(conn)
	}),
)
