package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
)

type User struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	EmailConfirmed bool        `json:"email_confirmed"`
	Roles          []auth.Role `json:"roles"`
	PasswordHash   []byte      `json:"-"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
	UpdatedAt      time.Time   `json:"updated_at"` // UTC
	LastLogin      time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role auth.Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool      { return u.HasRole(auth.RoleAdmin) }
func (u *User) IsInstructor() bool { return u.HasRole(auth.RoleInstructor) }
func (u *User) IsStudent() bool    { return u.HasRole(auth.RoleStudent) }

// Context returns the auth context this user acts under.
func (u *User) Context() auth.Context {
	return auth.Context{UserID: u.ID, Roles: u.Roles}
}

// RegisterUser contains information needed for self-registration. The account
// starts unconfirmed; a confirmation link is emailed to the given address.
type RegisterUser struct {
	Name     string    `json:"name" validate:"required"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required"`
	Role     auth.Role `json:"role" validate:"required,role"`
}

func (ru *RegisterUser) Validate(svc Service) error {
	ru.Name = core.CleanString(ru.Name)
	ru.Email = core.CleanString(ru.Email, true /* lower */)

	if err := core.Validate.Struct(ru); err != nil {
		return err
	}
	return svc.CheckUniqueness(ru.Email)
}

// NewUser contains information needed by an admin to create a User directly.
type NewUser struct {
	Name      string      `json:"name" validate:"required"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required"`
	Roles     []auth.Role `json:"roles" validate:"required,allroles"`
	Confirmed bool        `json:"confirmed"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name  string      `json:"name"`
	Email string      `json:"email" validate:"omitempty,email"`
	Roles []auth.Role `json:"roles" validate:"omitempty,allroles"`
}

func (uu *UpdateUser) Validate(origUsr User, svc Service) error {
	uu.Name = core.CleanString(uu.Name)
	if uu.Name == "" {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

type ResetUserPassword struct {
	UID             string `json:"uid,omitempty" validate:"required"`
	Token           string `json:"token,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }
