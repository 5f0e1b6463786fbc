package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickfast/internal/domain"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/ez"
)

// Module serves registration, login, email verification and the caller's
// own account.
type Module struct {
	users  *service.UserService
	ledger *service.MembershipLedger
}

func New(users *service.UserService, ledger *service.MembershipLedger) *Module {
	return &Module{users: users, ledger: ledger}
}

func (*Module) Priority() int { return 10 }

type registerIn struct {
	Email     string  `json:"email"     binding:"required,email"`
	Name      string  `json:"name"      binding:"omitempty,max=64"`
	Password  string  `json:"password"  binding:"required,min=6,max=72"`
	GroupCode *string `json:"groupCode" binding:"omitempty,len=6"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type verifyIn struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"  binding:"required,max=16"`
}

type feedbackIn struct {
	Message string `json:"message" binding:"required"`
}

type sent struct {
	Sent bool `json:"sent"`
}

type groupIn struct {
	GroupCode *string `json:"groupCode" binding:"omitempty,len=6"`
}

func upper(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	return &c
}

func (m *Module) MountPublic(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[registerIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (*domain.User, error) {
			return m.users.Register(c.Request.Context(), service.Registration{
				Email:     in.Email,
				Name:      in.Name,
				Password:  in.Password,
				GroupCode: upper(in.GroupCode),
			})
		},
	})

	ez.RegisterAction(e, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			tok, u, err := m.users.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{Token: tok, User: u}, nil
		},
	})

	// The code mailed at registration is the credential here.
	ez.RegisterAction(e, ez.Action[verifyIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/auth/verify",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *verifyIn) (*domain.User, error) {
			return m.users.VerifyEmail(c.Request.Context(), in.Email, in.Code)
		},
	})
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.users.Get(c.Request.Context(), ez.Actor(c).UserID)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, sent]{
		Method: http.MethodPost,
		Path:   "/me/verification",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (sent, error) {
			err := m.users.ResendVerification(c.Request.Context(), ez.Actor(c).UserID)
			return sent{Sent: err == nil}, err
		},
	})

	ez.RegisterAction(e, ez.Action[feedbackIn, sent]{
		Method: http.MethodPost,
		Path:   "/me/feedback",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *feedbackIn) (sent, error) {
			err := m.users.Feedback(c.Request.Context(), ez.Actor(c).UserID, in.Message)
			return sent{Sent: err == nil}, err
		},
	})

	// A null groupCode leaves the current group.
	ez.RegisterAction(e, ez.Action[groupIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/me/group",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *groupIn) (*domain.User, error) {
			return m.ledger.AssignUserToGroup(c.Request.Context(), ez.Actor(c).UserID, upper(in.GroupCode))
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodDelete,
		Path:   "/me/group",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.ledger.Leave(c.Request.Context(), ez.Actor(c).UserID)
		},
	})
}
