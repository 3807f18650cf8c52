package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/observability"
	obsmiddleware "github.com/smallbiznis/horecaalert/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/horecaalert/internal/observability/metrics"
	obstracing "github.com/smallbiznis/horecaalert/internal/observability/tracing"
	"github.com/smallbiznis/horecaalert/internal/ratelimit"
	searchalertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	"github.com/smallbiznis/horecaalert/internal/searchalert/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// AlertRunner executes one matching pass.
type AlertRunner interface {
	Run(ctx context.Context, trigger string) (alertrun.Summary, error)
}

// TriggerLimiter throttles external run triggers.
type TriggerLimiter interface {
	AllowTrigger(ctx context.Context) (*ratelimit.TriggerResult, error)
}

// cronRunRoute is the external trigger for a matching run.
const cronRunRoute = "/api/cron/search-alerts"

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.WithRunRoute(cronRunRoute, alertrun.TriggerCron)))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	runner    AlertRunner
	limiter   TriggerLimiter
	alertSvc  searchalertdomain.Service
	validator *schema.Validator
	pipeline  *obsmetrics.PipelineMetrics
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	Runner    *alertrun.Service
	AlertSvc  searchalertdomain.Service
	Validator *schema.Validator
	Guard     *ratelimit.RunGuard         `optional:"true"`
	Pipeline  *obsmetrics.PipelineMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("http.server"),
		runner:    p.Runner,
		alertSvc:  p.AlertSvc,
		validator: p.Validator,
		pipeline:  p.Pipeline,
	}
	if p.Guard != nil {
		svc.limiter = p.Guard
	}

	svc.registerCronRoutes()
	svc.registerAlertRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCronRoutes() {
	s.engine.GET(cronRunRoute, s.CronSecretRequired(), s.CronTriggerRateLimit(), s.RunSearchAlerts)
}

func (s *Server) registerAlertRoutes() {
	alerts := s.engine.Group("/api/search-alerts", s.InternalTokenRequired())
	alerts.POST("", s.CreateSearchAlert)
	alerts.GET("", s.ListSearchAlerts)
	alerts.PATCH("/:id/active", s.SetSearchAlertActive)
	alerts.DELETE("/:id", s.DeleteSearchAlert)
}
