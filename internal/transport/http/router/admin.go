package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pickfast/internal/core/logger"
	"pickfast/internal/core/server"
	"pickfast/internal/domain"
	"pickfast/internal/feature/group"
	"pickfast/internal/transport/http/handler"
	mdw "pickfast/internal/transport/http/middleware"
)

// NewAdminEngine builds the staff engine. Every /admin/v1 route requires the
// "admin" role.
func NewAdminEngine(d Deps) *gin.Engine {
	lim := d.limits()
	r := server.NewRouter(d.Log, mdw.RecoveryResponse)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(rate.Limit(lim.RPS), lim.Burst),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.Metrics("admin"),
		logger.Middleware(d.Log),
	)

	r.GET("/health", handler.Health)

	reg := NewRegistry(
		handler.NewAdminHandler(d.Services.Users),
		group.New(d.Services.Groups, d.Services.Ledger),
	)
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, domain.RoleStaff))
	reg.MountAdmin(admin)
	return r
}
