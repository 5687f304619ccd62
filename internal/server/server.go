package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/config"
	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	obsmetrics "github.com/orbitalworks/foundry/internal/observability/metrics"
	"github.com/orbitalworks/foundry/internal/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(obsmetrics.NewHTTPMetrics),
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
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
	authSvc     authgw.Service
	facilitySvc facilitydomain.Service
	jobSvc      jobdomain.Service
	registry    *registry.Registry
	hub         *events.Hub
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuthSvc     authgw.Service
	FacilitySvc facilitydomain.Service
	JobSvc      jobdomain.Service
	Registry    *registry.Registry
	Hub         *events.Hub
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		authSvc:     p.AuthSvc,
		facilitySvc: p.FacilitySvc,
		jobSvc:      p.JobSvc,
		registry:    p.Registry,
		hub:         p.Hub,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/", s.AuthRequired())

	api.GET("/facilities", s.ListFacilities)
	api.POST("/facilities/:id", s.BuildFacility)
	api.DELETE("/facilities/:id", s.DestroyFacility)

	api.POST("/jobs", s.SubmitJob)
	api.GET("/jobs", s.ListJobs)
	api.GET("/jobs/:id", s.GetJob)
	api.DELETE("/jobs/:id", s.CancelJob)

	api.GET("/spodb", s.ListStructures)
	api.GET("/events", s.StreamEvents)
}
