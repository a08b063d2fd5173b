package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/adapters/blockchain"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
	"github.com/hxuan190/relay-swap/internal/http/middlewares"
	"github.com/hxuan190/relay-swap/internal/services/market"
	"github.com/hxuan190/relay-swap/internal/services/planner"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

type HTTPService struct {
	container.BaseDIInstance

	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	conf        *config.GeneralConfig

	handlers []httputil.IHttpHandler
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

func (svc *HTTPService) Start() error {
	svc.server = &gohttp.Server{
		Addr:    svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler: NewEngine(svc.handlers, svc.rateLimiter, svc.conf.AdminToken),
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if svc.conf == nil {
		return errors.New("invalid server config")
	}

	plannerSvc := c.Instance(planner.ServiceName).(*planner.Service)
	pools := c.Instance(market.ServiceName).(*market.PoolStore)
	chain := c.Instance(blockchain.CHAIN_SERVICE).(*blockchain.ChainService)
	svc.rateLimiter = middlewares.NewRateLimiter(10, 20)

	svc.handlers = []httputil.IHttpHandler{
		NewPlanHandler(plannerSvc, chain),
		NewRelayHandler(plannerSvc.Relay()),
		NewDefaultsHandler(plannerSvc),
		NewPoolHandler(pools),
	}
	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

// NewEngine mounts the handlers under /api/v1 next to the health, metrics and swagger routes.
// A nil rate limiter disables rate limiting.
func NewEngine(handlers []httputil.IHttpHandler, rateLimiter *middlewares.RateLimiter, adminToken string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders("Authorization", "X-Wallet-Address")
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	if rateLimiter != nil {
		r.Use(rateLimiter.RateLimitMiddleware())
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)

	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))
	admin.Use(middlewares.AdminAuth(adminToken))

	for _, h := range handlers {
		h.SetRoutes(pub.Group(h.Root()), priv.Group(h.Root()), admin.Group(h.Root()))
	}
	return r
}
