package server

import (
	"context"
	"net/http"
	"time"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/config"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	"github.com/arusdata/pricebook/internal/observability"
	obslogger "github.com/arusdata/pricebook/internal/observability/logger"
	obstracing "github.com/arusdata/pricebook/internal/observability/tracing"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	applydomain "github.com/arusdata/pricebook/internal/rateapply/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	scheduledomain "github.com/arusdata/pricebook/internal/schedule/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	priceSvc     pricedomain.Service
	rateSvc      ratedomain.Service
	scheduleSvc  scheduledomain.Service
	applySvc     applydomain.Service
	changelogSvc changelogdomain.Service
	refRepo      referencedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	PriceSvc     pricedomain.Service
	RateSvc      ratedomain.Service
	ScheduleSvc  scheduledomain.Service
	ApplySvc     applydomain.Service
	ChangelogSvc changelogdomain.Service
	RefRepo      referencedomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		priceSvc:     p.PriceSvc,
		rateSvc:      p.RateSvc,
		scheduleSvc:  p.ScheduleSvc,
		applySvc:     p.ApplySvc,
		changelogSvc: p.ChangelogSvc,
		refRepo:      p.RefRepo,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(OrgContext())
	api.Use(ActorContext())

	prices := api.Group("/price-versions")
	{
		prices.POST("", s.CreatePriceVersion)
		prices.GET("/current", s.CurrentPrice)
		prices.GET("/upcoming", s.UpcomingPriceVersions)
		prices.GET("/history", s.PriceVersionHistory)
		prices.GET("/:id", s.GetPriceVersion)
		prices.POST("/:id/cancel", s.CancelPriceVersion)
	}

	rates := api.Group("/exchange-rates")
	{
		rates.POST("", s.CreateExchangeRate)
		rates.GET("/current", s.CurrentExchangeRate)
		rates.GET("/upcoming", s.UpcomingExchangeRates)
		rates.GET("/history", s.ExchangeRateHistory)
		rates.GET("/:id", s.GetExchangeRate)
		rates.POST("/:id/cancel", s.CancelExchangeRate)
	}

	upcoming := api.Group("/upcoming-changes")
	{
		upcoming.GET("", s.ListUpcomingChanges)
		upcoming.POST("/:subject_type/:id/cancel", s.CancelUpcomingChange)
	}

	pricing := api.Group("/pricing")
	{
		pricing.GET("/effective-price", s.EffectivePrice)
		pricing.GET("/effective-rate", s.EffectiveRate)
		pricing.POST("/convert", s.Convert)
		pricing.GET("/convert-price", s.ConvertPrice)
	}

	api.GET("/change-logs", s.ListChangeLogs)
	api.GET("/currencies", s.ListCurrencies)
}
