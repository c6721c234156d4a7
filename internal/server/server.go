package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scyra/scyra/internal/auth"
	authdomain "github.com/scyra/scyra/internal/auth/domain"
	"github.com/scyra/scyra/internal/auth/session"
	"github.com/scyra/scyra/internal/billing"
	billingdomain "github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	"github.com/scyra/scyra/internal/ledger"
	"github.com/scyra/scyra/internal/llm"
	"github.com/scyra/scyra/internal/migration"
	"github.com/scyra/scyra/internal/observability"
	obsmiddleware "github.com/scyra/scyra/internal/observability/logger"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	obstracing "github.com/scyra/scyra/internal/observability/tracing"
	"github.com/scyra/scyra/internal/profile"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	"github.com/scyra/scyra/internal/ratelimit"
	"github.com/scyra/scyra/internal/research"
	"github.com/scyra/scyra/internal/search"
	"github.com/scyra/scyra/internal/trends"
	trendsdomain "github.com/scyra/scyra/internal/trends/domain"
	"github.com/scyra/scyra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	db.Module,
	migration.Module,
	clock.Module,
	fx.Provide(newSnowflakeNode),
	fx.Provide(registerGin),
	auth.Module,
	ledger.Module,
	profile.Module,
	llm.Module,
	research.Module,
	search.Module,
	ratelimit.Module,
	billing.Module,
	trends.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
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
	authsvc    authdomain.Service
	sessions   *session.Manager
	profileSvc profiledomain.Service
	trendsSvc  trendsdomain.Service
	billingSvc billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Authsvc    authdomain.Service
	Sessions   *session.Manager
	ProfileSvc profiledomain.Service
	TrendsSvc  trendsdomain.Service
	BillingSvc billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		authsvc:    p.Authsvc,
		sessions:   p.Sessions,
		profileSvc: p.ProfileSvc,
		trendsSvc:  p.TrendsSvc,
		billingSvc: p.BillingSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Trends --------
	api.POST("/trends/generate", s.AuthRequired(), s.GenerateTrends)
	api.GET("/trends/history", s.AuthRequired(), s.TrendHistory)

	// -------- Profile --------
	api.GET("/user/profile", s.AuthRequired(), s.GetProfile)

	// -------- Checkout --------
	api.POST("/checkout", s.AuthRequired(), s.CreateCheckout)

	// -------- Billing Webhooks --------
	api.POST("/webhooks/:provider", s.HandleBillingWebhook)
}
