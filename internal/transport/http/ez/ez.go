package ez

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pickfast/internal/domain"
	mdw "pickfast/internal/transport/http/middleware"
	resp "pickfast/internal/transport/http/response"
)

// EZ wraps a router group for one-line action registration.
type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

type Binder string

const (
	BindJSON  Binder = "json"  // request body
	BindQuery Binder = "query" // ?a=b
	BindNone  Binder = "none"  // handler reads c.Param itself
)

// Action is a single endpoint: I is the bound input, O the envelope data.
type Action[I any, O any] struct {
	Method  string // GET | POST | PUT | DELETE
	Path    string // e.g. "/groups/:code/blacklist"
	Binder  Binder
	Auth    bool     // require KeyUserID
	Roles   []string // optional role allow-list
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction mounts a under e. Errors are mapped to envelope codes through
// FromDomain; the HTTP status is always 200.
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth {
			if c.GetString(mdw.KeyUserID) == "" {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !hasRole(c.GetString(mdw.KeyRole), a.Roles) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, err error) {
	ae := FromDomain(err)
	if ae.Code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	if ae.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(ae.RetryAfter.Round(time.Second)/time.Second)))
	}
	if ae.Reason != "" {
		c.JSON(http.StatusOK, resp.Denied(ae.Code, ae.Error(), ae.Reason))
		return
	}
	c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
}

// Actor is the authenticated caller as set by middleware.AuthJWT.
func Actor(c *gin.Context) domain.Actor {
	return domain.Actor{UserID: c.GetString(mdw.KeyUserID), Role: c.GetString(mdw.KeyRole)}
}

// UintParam parses a numeric path parameter.
func UintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, BadRequest("invalid " + name)
	}
	return uint(v), nil
}

// Paging is the common offset/limit query.
type Paging struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

// Clamp keeps limit within 1..max.
func (p Paging) Clamp(max int) (offset, limit int) {
	offset, limit = p.Offset, p.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > max {
		limit = max
	}
	return offset, limit
}

// List is the envelope data of paged endpoints.
type List[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

func NewList[T any](items []T, total int64) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Total: total, Items: items}
}
