package group

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickfast/internal/domain"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/ez"
)

// Module serves group administration to members (/api/v1) and staff
// (/admin/v1). Permission checks live in the services, so both mounts share
// the same actions.
type Module struct {
	groups *service.GroupService
	ledger *service.MembershipLedger
}

func New(groups *service.GroupService, ledger *service.MembershipLedger) *Module {
	return &Module{groups: groups, ledger: ledger}
}

func (*Module) Priority() int { return 20 }

type createIn struct {
	Private bool `json:"private"`
}

// staffCreateIn names the member who will administer the new group.
type staffCreateIn struct {
	Private bool   `json:"private"`
	AdminID string `json:"adminId" binding:"required"`
}

type privateIn struct {
	Private bool `json:"private"`
}

type adminIn struct {
	UserID string `json:"userId" binding:"required"`
}

type blacklistIn struct {
	UserID string `json:"userId" binding:"required"`
}

type done struct {
	Code string `json:"code"`
}

func codeParam(c *gin.Context) string { return strings.ToUpper(c.Param("code")) }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[createIn, *domain.Group]{
		Method: http.MethodPost,
		Path:   "/groups",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *createIn) (*domain.Group, error) {
			return m.groups.CreateGroup(c.Request.Context(), ez.Actor(c).UserID, in.Private)
		},
	})
	m.mountShared(e)
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[ez.Paging, ez.List[domain.Group]]{
		Method: http.MethodGet,
		Path:   "/groups",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *ez.Paging) (ez.List[domain.Group], error) {
			offset, limit := in.Clamp(100)
			groups, total, err := m.groups.List(c.Request.Context(), offset, limit)
			if err != nil {
				return ez.List[domain.Group]{}, err
			}
			return ez.NewList(groups, total), nil
		},
	})

	ez.RegisterAction(e, ez.Action[staffCreateIn, *domain.Group]{
		Method: http.MethodPost,
		Path:   "/groups",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *staffCreateIn) (*domain.Group, error) {
			return m.groups.CreateGroup(c.Request.Context(), in.AdminID, in.Private)
		},
	})
	m.mountShared(e)
}

func (m *Module) mountShared(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[struct{}, *domain.GroupView]{
		Method: http.MethodGet,
		Path:   "/groups/:code",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.GroupView, error) {
			return m.groups.Get(c.Request.Context(), ez.Actor(c), codeParam(c))
		},
	})

	ez.RegisterAction(e, ez.Action[privateIn, *domain.Group]{
		Method: http.MethodPut,
		Path:   "/groups/:code/private",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *privateIn) (*domain.Group, error) {
			return m.groups.SetPrivate(c.Request.Context(), ez.Actor(c), codeParam(c), in.Private)
		},
	})

	ez.RegisterAction(e, ez.Action[adminIn, *domain.Group]{
		Method: http.MethodPut,
		Path:   "/groups/:code/admin",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *adminIn) (*domain.Group, error) {
			return m.groups.TransferAdmin(c.Request.Context(), ez.Actor(c), codeParam(c), in.UserID)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, done]{
		Method: http.MethodDelete,
		Path:   "/groups/:code",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (done, error) {
			code := codeParam(c)
			return done{Code: code}, m.groups.Delete(c.Request.Context(), ez.Actor(c), code)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, done]{
		Method: http.MethodDelete,
		Path:   "/groups/:code/members/:userId",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (done, error) {
			code := codeParam(c)
			return done{Code: code}, m.ledger.RemoveMember(c.Request.Context(), ez.Actor(c), code, c.Param("userId"))
		},
	})

	ez.RegisterAction(e, ez.Action[blacklistIn, done]{
		Method: http.MethodPost,
		Path:   "/groups/:code/blacklist",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *blacklistIn) (done, error) {
			code := codeParam(c)
			return done{Code: code}, m.ledger.Blacklist(c.Request.Context(), ez.Actor(c), code, in.UserID)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, done]{
		Method: http.MethodDelete,
		Path:   "/groups/:code/blacklist/:userId",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (done, error) {
			code := codeParam(c)
			return done{Code: code}, m.ledger.Unblacklist(c.Request.Context(), ez.Actor(c), code, c.Param("userId"))
		},
	})
}
