package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swapforge/swapforge/internal/config"
	"github.com/swapforge/swapforge/internal/credit"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	"github.com/swapforge/swapforge/internal/invite"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
	"github.com/swapforge/swapforge/internal/job"
	jobdomain "github.com/swapforge/swapforge/internal/job/domain"
	obslogger "github.com/swapforge/swapforge/internal/observability/logger"
	obstracing "github.com/swapforge/swapforge/internal/observability/tracing"
	"github.com/swapforge/swapforge/internal/payment"
	paymentdomain "github.com/swapforge/swapforge/internal/payment/domain"
	"github.com/swapforge/swapforge/internal/ratelimit"
	"github.com/swapforge/swapforge/internal/session"
	"github.com/swapforge/swapforge/internal/user"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	user.Module,
	credit.Module,
	invite.Module,
	payment.Module,
	job.Module,
	ratelimit.Module,
	session.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	userSvc    userdomain.Service
	creditSvc  creditdomain.Service
	inviteSvc  invitedomain.Service
	paymentSvc paymentdomain.Service
	jobSvc     jobdomain.Service
	sessions   *session.Store
	jobLimiter *ratelimit.JobSubmitLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	UserSvc    userdomain.Service
	CreditSvc  creditdomain.Service
	InviteSvc  invitedomain.Service
	PaymentSvc paymentdomain.Service
	JobSvc     jobdomain.Service
	Sessions   *session.Store
	JobLimiter *ratelimit.JobSubmitLimiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		userSvc:    p.UserSvc,
		creditSvc:  p.CreditSvc,
		inviteSvc:  p.InviteSvc,
		paymentSvc: p.PaymentSvc,
		jobSvc:     p.JobSvc,
		sessions:   p.Sessions,
		jobLimiter: p.JobLimiter,
	}

	svc.registerBotRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerBotRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/users", s.getOrCreateUser)
	v1.GET("/users/:id", s.getUser)
	v1.GET("/users/:id/balance", s.getBalance)
	v1.POST("/users/:id/terms", s.agreeToTerms)
	v1.GET("/users/:id/credits", s.listUserCredits)
	v1.GET("/users/:id/credits/history", s.getCreditHistory)
	v1.GET("/users/:id/transactions", s.getTransactionHistory)
	v1.GET("/users/:id/invites", s.listUserInvites)
	v1.GET("/users/:id/invites/stats", s.getUserInviteStats)
	v1.GET("/users/:id/jobs", s.listUserJobs)

	v1.PUT("/users/:id/session", s.setPendingUpload)
	v1.GET("/users/:id/session", s.getPendingUpload)
	v1.DELETE("/users/:id/session", s.clearPendingUpload)

	v1.POST("/invites", s.createInvite)
	v1.GET("/invites/:code", s.validateInvite)
	v1.POST("/invites/:code/accept", s.acceptInvite)
	v1.POST("/invites/:code/cancel", s.cancelInvite)

	v1.POST("/jobs", s.createJob)
	v1.GET("/jobs/:id", s.getJob)
	v1.POST("/jobs/:id/process", s.processJob)
	v1.POST("/jobs/:id/cancel", s.cancelJob)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")
	hooks.POST("/telegram-stars", WebhookAuth(s.cfg.StarsWebhookSecret), s.starsWebhook)
	hooks.POST("/upi", WebhookAuth(s.cfg.UPIWebhookSecret), s.upiWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/v1", s.AdminAuth())

	admin.GET("/users", s.searchUsers)
	admin.GET("/users/:id/stats", s.getUserStats)
	admin.POST("/users/:id/suspend", s.suspendUser)
	admin.POST("/users/:id/ban", s.banUser)
	admin.POST("/users/:id/reactivate", s.reactivateUser)

	admin.POST("/credits/grant", s.grantCredits)
	admin.POST("/credits/transfer", s.transferCredits)
	admin.POST("/credits/expire", s.expireCredits)
	admin.GET("/credits/expiring", s.listExpiringCredits)
	admin.POST("/invites/expire", s.expireInvites)

	admin.GET("/stats/credits", s.getCreditStatistics)
	admin.GET("/stats/invites", s.getInviteStatistics)
	admin.GET("/stats/jobs", s.getJobStatistics)
	admin.GET("/stats/payments", s.getPaymentStatistics)
}
