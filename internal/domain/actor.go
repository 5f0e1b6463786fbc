package domain

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsStaff() bool { return a.Role == RoleStaff }
