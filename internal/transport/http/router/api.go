package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pickfast/internal/core/auth"
	"pickfast/internal/core/config"
	"pickfast/internal/core/server"
	"pickfast/internal/feature/group"
	"pickfast/internal/feature/shopping"
	"pickfast/internal/feature/user"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/handler"
	mdw "pickfast/internal/transport/http/middleware"
	resp "pickfast/internal/transport/http/response"
)

// Deps is what both engines are built from.
type Deps struct {
	Log      *zap.Logger
	JWT      *auth.JWTer
	Services *service.Services
	Limits   config.Limits
}

func (d Deps) limits() config.Limits {
	l := d.Limits
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.Concurrency <= 0 {
		l.Concurrency = 300
	}
	if l.MaxBodyMB <= 0 {
		l.MaxBodyMB = 1
	}
	if l.TimeoutSec <= 0 {
		l.TimeoutSec = 10
	}
	return l
}

// NewAPIEngine builds the user-facing engine.
func NewAPIEngine(d Deps) *gin.Engine {
	lim := d.limits()
	r := server.NewRouter(d.Log, mdw.RecoveryResponse)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.Metrics("api"),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reg := NewRegistry(
		user.New(d.Services.Users, d.Services.Ledger),
		group.New(d.Services.Groups, d.Services.Ledger),
		shopping.New(d.Services.Stores, d.Services.Products),
	)

	api := r.Group("/api/v1")
	reg.MountPublic(api)

	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT, ""))
	reg.MountAPI(authed)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, "route not found"))
	})
	return r
}
