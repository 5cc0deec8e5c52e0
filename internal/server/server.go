package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fckfck97/cie-corpoindustrial/internal/account"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth"
	authdomain "github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/fckfck97/cie-corpoindustrial/internal/notifier"
	notifierdomain "github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/observability/metrics"
	"github.com/fckfck97/cie-corpoindustrial/internal/providers"
)

var Module = fx.Module("http.server",
	metrics.Module,
	providers.Module,
	account.Module,
	billing.Module,
	notifier.Module,
	auth.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, m *metrics.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, m *metrics.Metrics) *gin.Engine {
	return NewEngine(cfg, m)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	accountSvc  accountdomain.Service
	billingSvc  billingdomain.Service
	notifierSvc notifierdomain.Service
	authSvc     authdomain.Service
	tokens      authdomain.TokenIssuer
	metrics     *metrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	AccountSvc  accountdomain.Service
	BillingSvc  billingdomain.Service
	NotifierSvc notifierdomain.Service
	AuthSvc     authdomain.Service
	Tokens      authdomain.TokenIssuer
	Metrics     *metrics.Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		db:          p.DB,
		genID:       p.GenID,
		accountSvc:  p.AccountSvc,
		billingSvc:  p.BillingSvc,
		notifierSvc: p.NotifierSvc,
		authSvc:     p.AuthSvc,
		tokens:      p.Tokens,
		metrics:     p.Metrics,
	}

	s.registerAuthRoutes()
	s.registerBillingRoutes()

	return s
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/authentication")
	grp.POST("/login/otp/request/web/", s.requestOTP)
	grp.POST("/login/otp/verify/", s.verifyOTP)
}

func (s *Server) registerBillingRoutes() {
	grp := s.engine.Group("/billing")

	// Admin JWT or shared cron token.
	grp.GET("/activate/", s.activate)
	grp.POST("/activate/", s.activate)
	grp.GET("/notifications/delinquency/", s.runDelinquencyNotifications)
	grp.POST("/notifications/delinquency/", s.runDelinquencyNotifications)

	authed := grp.Group("", s.RequireAuth())
	authed.GET("/enterprises/", s.RequireAdmin(), s.dashboard)
	authed.POST("/generate/", s.RequireAdmin(), s.generate)
	authed.POST("/payments/:payment_id/mark-paid/", s.RequireAdmin(), s.markPaid)
	authed.GET("/report/", s.RequireAdmin(), s.report)
	authed.GET("/my-payments/", s.myPayments)
}
