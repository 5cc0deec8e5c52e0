package migration

import (
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	authdomain "github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	notifierdomain "github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			// The versioned migrations target postgres; other drivers get
			// the model-derived schema.
			log.Info("using model auto-migration", zap.String("driver", cfg.DBType))
			if err := conn.AutoMigrate(
				&accountdomain.Account{},
				&billingdomain.MonthlyPayment{},
				&notifierdomain.NotificationLog{},
				&authdomain.OneTimePassword{},
			); err != nil {
				return err
			}
			return seed.EnsureAdmin(conn, cfg.BootstrapAdminEmail)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		return seed.EnsureAdmin(conn, cfg.BootstrapAdminEmail)
	}),
)
