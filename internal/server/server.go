package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lumamail/backend/internal/auth"
	authdomain "github.com/lumamail/backend/internal/auth/domain"
	"github.com/lumamail/backend/internal/auth/session"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/config"
	"github.com/lumamail/backend/internal/creditpackage"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	"github.com/lumamail/backend/internal/observability"
	obslogger "github.com/lumamail/backend/internal/observability/logger"
	obsmetrics "github.com/lumamail/backend/internal/observability/metrics"
	"github.com/lumamail/backend/internal/payment"
	paymentdomain "github.com/lumamail/backend/internal/payment/domain"
	paymentwebhook "github.com/lumamail/backend/internal/payment/webhook"
	"github.com/lumamail/backend/internal/providers/email"
	"github.com/lumamail/backend/internal/ratelimit"
	"github.com/lumamail/backend/internal/signup"
	signupdomain "github.com/lumamail/backend/internal/signup/domain"
	"github.com/lumamail/backend/internal/subscription"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	"github.com/lumamail/backend/internal/usage"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
	"github.com/lumamail/backend/internal/verification"
	"github.com/lumamail/backend/internal/wallet"
	walletdomain "github.com/lumamail/backend/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	clock.Module,
	observability.Module,
	email.Module,
	ratelimit.Module,
	verification.Module,
	auth.Module,
	signup.Module,
	subscription.Module,
	usage.Module,
	wallet.Module,
	creditpackage.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	sessions        *session.Manager
	authSvc         authdomain.Service
	signupSvc       signupdomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	walletSvc       walletdomain.Service
	packageSvc      creditpackagedomain.Service
	paymentSvc      paymentdomain.Service
	webhookVerifier *paymentwebhook.Verifier
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Sessions        *session.Manager
	AuthSvc         authdomain.Service
	SignupSvc       signupdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	WalletSvc       walletdomain.Service
	PackageSvc      creditpackagedomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookVerifier *paymentwebhook.Verifier
	Metrics         *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		sessions:        p.Sessions,
		authSvc:         p.AuthSvc,
		signupSvc:       p.SignupSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		walletSvc:       p.WalletSvc,
		packageSvc:      p.PackageSvc,
		paymentSvc:      p.PaymentSvc,
		webhookVerifier: p.WebhookVerifier,
		metrics:         p.Metrics,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
		auth.POST("/verify-registration", s.VerifyRegistration)
		auth.POST("/verify-login", s.VerifyLogin)
		auth.POST("/validate-session", s.ValidateSession)
		auth.POST("/logout", s.Logout)
	}

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.GET("/plans", s.ListPlans)
		subscriptions.GET("/current", s.AuthRequired(), s.GetCurrentSubscription)
		subscriptions.POST("/create", s.AuthRequired(), s.CreateSubscription)
		subscriptions.POST("/cancel", s.AuthRequired(), s.CancelSubscription)
	}

	packages := api.Group("/packages")
	{
		packages.GET("", s.ListPackages)
		packages.POST("/purchase", s.AuthRequired(), s.PurchasePackage)
		packages.GET("/history", s.AuthRequired(), s.ListPaymentHistory)
	}

	usageRoutes := api.Group("/usage", s.AuthRequired())
	{
		usageRoutes.POST("/check", s.CheckUsage)
		usageRoutes.POST("/track", s.TrackUsage)
		usageRoutes.GET("/stats", s.UsageStats)
	}

	walletRoutes := api.Group("/wallet", s.AuthRequired())
	{
		walletRoutes.GET("/balance", s.WalletBalance)
		walletRoutes.GET("/transactions", s.WalletTransactions)
	}

	api.POST("/payment-webhook", s.HandlePaymentWebhook)
}
