package auth

import "errors"

// ErrForbidden is returned whenever a caller acts outside their scope.
// It carries no information about the existence of the target.
var ErrForbidden = errors.New("permission denied")

// Role is the closed set of roles a user may hold. There is no hierarchy;
// a user only has the capabilities of the roles explicitly granted.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

var AllRoles = []Role{RoleAdmin, RoleInstructor, RoleStudent}

// rolePriorities drives dashboard routing when a user holds several roles.
var rolePriorities = map[Role]int{
	RoleAdmin:      30,
	RoleInstructor: 20,
	RoleStudent:    10,
}

func IsValidRole(r Role) bool {
	_, ok := rolePriorities[r]
	return ok
}

// PrimaryRole picks the highest-priority role: Admin > Instructor > Student.
// Returns the empty Role for an empty set.
func PrimaryRole(roles []Role) Role {
	var primary Role
	var max int
	for _, r := range roles {
		if p := rolePriorities[r]; p > max {
			max = p
			primary = r
		}
	}
	return primary
}

// Context identifies the authenticated caller of a core operation. It is
// passed explicitly into every scoped call; core packages never read
// ambient request state.
type Context struct {
	UserID string
	Roles  []Role
}

func (c Context) Has(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Context) IsAdmin() bool      { return c.Has(RoleAdmin) }
func (c Context) IsInstructor() bool { return c.Has(RoleInstructor) }
func (c Context) IsStudent() bool    { return c.Has(RoleStudent) }

// IsAnonymous reports whether the context carries no authenticated user.
func (c Context) IsAnonymous() bool { return c.UserID == "" || len(c.Roles) == 0 }
