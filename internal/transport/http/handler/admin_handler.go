package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pickfast/internal/domain"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/ez"
)

// Health is the liveness check of both engines.
func Health(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) }

// AdminHandler serves the staff user endpoints.
type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type userRow struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	GroupCode *string `json:"groupCode"`
}

func toRow(u domain.User) userRow {
	return userRow{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, GroupCode: u.GroupCode}
}

type listUsersQ struct {
	ez.Paging
	Q string `form:"q"` // email or name fragment
}

type setRoleIn struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"  binding:"required,oneof=user admin"`
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[listUsersQ, ez.List[userRow]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listUsersQ) (ez.List[userRow], error) {
			offset, limit := in.Clamp(100)
			users, total, err := h.users.List(c.Request.Context(), in.Q, offset, limit)
			if err != nil {
				return ez.List[userRow]{}, err
			}
			rows := make([]userRow, 0, len(users))
			for _, u := range users {
				rows = append(rows, toRow(u))
			}
			return ez.NewList(rows, total), nil
		},
	})

	ez.RegisterAction(e, ez.Action[setRoleIn, userRow]{
		Method: http.MethodPut,
		Path:   "/users/role",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *setRoleIn) (userRow, error) {
			u, err := h.users.SetRole(c.Request.Context(), in.Email, in.Role)
			if err != nil {
				return userRow{}, err
			}
			return toRow(*u), nil
		},
	})
}
