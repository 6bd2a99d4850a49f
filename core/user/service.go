package user

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("please confirm your email before logging in")
	ErrAlreadyConfirmed   = errors.New("email is already confirmed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CreateUser(usr User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		// GetUserByEmail matches case-insensitively.
		GetUserByEmail(email string) (User, error)
		QueryUsersByRole(role auth.Role) ([]User, error)
		// UpdateUser only persists set fields; zero-valued fields are left unchanged.
		UpdateUser(usr User) (User, error)
		// SetEmailConfirmed flips the flag to true. One-way; there is no unconfirm.
		SetEmailConfirmed(id string) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	Service interface {
		// account lifecycle
		Register(ru RegisterUser) (User, error)
		ConfirmEmail(token string) (User, error)
		ResendConfirmation(email string) error
		Authenticate(email, pwd string) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error

		// user management (admin)
		CheckUniqueness(email string, excludedUsers ...User) error
		Create(ctx auth.Context, nu NewUser) (User, error)
		QueryAll(ctx auth.Context) ([]User, error)
		QueryByRole(ctx auth.Context, role auth.Role) ([]User, error)
		GetByID(id string) (User, error)
		GetByEmail(email string) (User, error)
		Update(ctx auth.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx auth.Context, ids ...string) error
	}

	service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		tokens  ConfirmationTokens
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  NewConfirmationTokens(conf),
	}
}

func (svc *service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates an unconfirmed account and emails a confirmation link.
// Old confirmation tokens are never revoked; each stays valid until expiry.
func (svc *service) Register(ru RegisterUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      ru.Name,
		Email:     ru.Email,
		Roles:     []auth.Role{ru.Role},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(ru.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, err
	}
	// delivery is fire-and-forget; registration is not rolled back
	if err := svc.sendConfirmationMail(usr); err != nil {
		svc.logger.Error("sending confirmation email", err, usr)
	}
	return usr, nil
}

// ConfirmEmail flips EmailConfirmed on the token's subject. Confirming an
// already-confirmed account is a no-op.
func (svc *service) ConfirmEmail(token string) (User, error) {
	claims, err := svc.tokens.Validate(token)
	if err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(claims.Subject)
	if err != nil {
		return User{}, err
	}
	if usr.EmailConfirmed {
		return usr, nil
	}
	return svc.repo.SetEmailConfirmed(usr.ID)
}

func (svc *service) ResendConfirmation(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if usr.EmailConfirmed {
		return ErrAlreadyConfirmed
	}
	return svc.sendConfirmationMail(usr)
}

// Authenticate checks credentials and the email-confirmation gate.
// A missing user and a wrong password are indistinguishable to the caller.
func (svc *service) Authenticate(email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, pkgerrors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.EmailConfirmed {
		return User{}, ErrEmailNotConfirmed
	}

	usr, err = svc.repo.UpdateUser(User{ID: usr.ID, LastLogin: time.Now().UTC()})
	if err != nil {
		return User{}, pkgerrors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return ErrInvalidToken
	}
	usr, err := svc.repo.GetUserByID(uid)
	if err != nil {
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	_, err = svc.repo.UpdateUser(User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()})
	return err
}

func (svc *service) Create(ctx auth.Context, nu NewUser) (User, error) {
	if !auth.UserScope(ctx).Allowed() {
		return User{}, auth.ErrForbidden
	}

	now := time.Now().UTC()
	usr := User{
		Name:           nu.Name,
		Email:          nu.Email,
		EmailConfirmed: nu.Confirmed,
		Roles:          nu.Roles,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, err
	}
	if !usr.EmailConfirmed {
		if err := svc.sendConfirmationMail(usr); err != nil {
			svc.logger.Error("sending confirmation email", err, usr)
		}
	}
	return usr, nil
}

func (svc *service) QueryAll(ctx auth.Context) ([]User, error) {
	if !auth.UserScope(ctx).Allowed() {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryAllUsers()
}

func (svc *service) QueryByRole(ctx auth.Context, role auth.Role) ([]User, error) {
	if !auth.UserScope(ctx).Allowed() {
		return nil, auth.ErrForbidden
	}
	return svc.repo.QueryUsersByRole(role)
}

func (svc *service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx auth.Context, id string, uu UpdateUser) (User, error) {
	if !auth.UserScope(ctx).Allowed() {
		return User{}, auth.ErrForbidden
	}
	return svc.repo.UpdateUser(User{
		ID:        id,
		Name:      uu.Name,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *service) Delete(ctx auth.Context, ids ...string) error {
	if !auth.UserScope(ctx).Allowed() {
		return auth.ErrForbidden
	}
	return svc.repo.DeleteUsersByID(ids...)
}

func (svc *service) sendConfirmationMail(usr User) error {
	token, err := svc.tokens.Issue(usr.ID, usr.Email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/account/confirm-email?token=%s", svc.conf.FrontendBaseURL, url.QueryEscape(token))
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:     "Confirm Your Email",
		TextContent: fmt.Sprintf("Please confirm your account by visiting: %s", link),
		HTMLContent: fmt.Sprintf("<p>Please confirm your account by clicking <a href=%q>here</a>.</p>", link),
	})
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	link := fmt.Sprintf(
		"%s/account/reset-password?uid=%s&token=%s",
		svc.conf.FrontendBaseURL, EncodeUID(usr), makeToken(usr),
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:     "Reset Your Password",
		TextContent: fmt.Sprintf("Reset your password by visiting: %s", link),
		HTMLContent: fmt.Sprintf("<p>Reset your password by clicking <a href=%q>here</a>.</p>", link),
	})
}
