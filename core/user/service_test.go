package user_test

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/user"
	emailsvc "github.com/darasa-lms/darasa/services/email"
	inmemdb "github.com/darasa-lms/darasa/storage/database/inmem"
)

const testPassword = "V3ry.S3cret!"

func svcConf() *core.Config {
	return &core.Config{
		AppName:         "Darasa",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@test.cd"},
		ConfirmationToken: core.ConfirmationTokenConfig{
			Issuer:          "Darasa",
			Audience:        "DarasaUsers",
			ExpirationHours: 24,
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
}

// logRecorder captures Error/Fatal messages for assertions.
type logRecorder struct {
	errors []string
}

func (l *logRecorder) Debug(msg string, args ...interface{}) {}
func (l *logRecorder) Info(msg string, args ...interface{})  {}
func (l *logRecorder) Warn(msg string, args ...interface{})  {}
func (l *logRecorder) Error(msg string, args ...interface{}) { l.errors = append(l.errors, msg) }
func (l *logRecorder) Fatal(msg string, args ...interface{}) { l.errors = append(l.errors, msg) }

func newTestService(t *testing.T) (user.Service, user.Repository) {
	t.Helper()
	emailsvc.ClearSentMessages()
	conf := svcConf()
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())
	return user.NewService(conf, repo, emailsvc.NewConsoleServiceMock(conf), &logRecorder{}), repo
}

func register(t *testing.T, svc user.Service, name, email string) user.User {
	t.Helper()
	usr, err := svc.Register(user.RegisterUser{
		Name:     name,
		Email:    email,
		Password: testPassword,
		Role:     auth.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return usr
}

// confirmationToken digs the emailed token out of the captured outbox.
func confirmationToken(t *testing.T, email string) string {
	t.Helper()
	for _, msg := range emailsvc.SentMessages {
		for _, to := range msg.To {
			if to.Address == email && strings.Contains(msg.TextContent, "confirm") {
				idx := strings.Index(msg.TextContent, "token=")
				if idx < 0 {
					continue
				}
				return msg.TextContent[idx+len("token="):]
			}
		}
	}
	t.Fatalf("no confirmation email sent to %s", email)
	return ""
}

func TestService_RegisterConfirmLogin(t *testing.T) {
	svc, _ := newTestService(t)

	usr := register(t, svc, "Awe Mwamba", "awe@test.cd")
	if usr.EmailConfirmed {
		t.Error("Register() account starts confirmed; want unconfirmed")
	}

	// login before confirmation is gated
	if _, err := svc.Authenticate("awe@test.cd", testPassword); err != user.ErrEmailNotConfirmed {
		t.Errorf("Authenticate() error = %v, want %v", err, user.ErrEmailNotConfirmed)
	}

	token := confirmationToken(t, "awe@test.cd")
	confirmed, err := svc.ConfirmEmail(token)
	if err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}
	if !confirmed.EmailConfirmed {
		t.Error("ConfirmEmail() did not confirm the account")
	}

	// confirming again is a no-op
	if _, err = svc.ConfirmEmail(token); err != nil {
		t.Errorf("ConfirmEmail() second call error = %v", err)
	}

	logged, err := svc.Authenticate("awe@test.cd", testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if logged.LastLogin.IsZero() {
		t.Error("Authenticate() did not set LastLogin")
	}

	// email lookup is case-insensitive
	if _, err = svc.Authenticate("AWE@Test.CD", testPassword); err != nil {
		t.Errorf("Authenticate() with mixed-case email error = %v", err)
	}
}

func TestService_Authenticate_badCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	usr := register(t, svc, "Awe Mwamba", "awe@test.cd")

	token := confirmationToken(t, usr.Email)
	if _, err := svc.ConfirmEmail(token); err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}

	// a missing user and a wrong password are indistinguishable
	if _, err := svc.Authenticate("nobody@test.cd", testPassword); err != user.ErrInvalidCredentials {
		t.Errorf("Authenticate() unknown email error = %v, want %v", err, user.ErrInvalidCredentials)
	}
	if _, err := svc.Authenticate("awe@test.cd", "wrong-password"); err != user.ErrInvalidCredentials {
		t.Errorf("Authenticate() wrong password error = %v, want %v", err, user.ErrInvalidCredentials)
	}
}

// A confirmation mail that cannot be prepared is logged, not surfaced;
// the account is still created.
func TestService_Register_mailFailureDoesNotRollBack(t *testing.T) {
	emailsvc.ClearSentMessages()
	conf := svcConf()
	conf.SecretKey = "" // token issuing fails without a secret
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())
	logger := &logRecorder{}
	svc := user.NewService(conf, repo, emailsvc.NewConsoleServiceMock(conf), logger)

	usr := register(t, svc, "Awe Mwamba", "awe@test.cd")

	if _, err := repo.GetUserByID(usr.ID); err != nil {
		t.Errorf("GetUserByID() after failed mail error = %v", err)
	}
	if len(emailsvc.SentMessages) != 0 {
		t.Errorf("Register() sent %d messages, want 0", len(emailsvc.SentMessages))
	}
	if len(logger.errors) != 1 {
		t.Errorf("Register() logged %d errors, want 1", len(logger.errors))
	}
}

func TestService_ConfirmEmail_badToken(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "Awe Mwamba", "awe@test.cd")

	if _, err := svc.ConfirmEmail("not-a-token"); err != user.ErrInvalidToken {
		t.Errorf("ConfirmEmail() error = %v, want %v", err, user.ErrInvalidToken)
	}
}

func TestService_ResendConfirmation(t *testing.T) {
	svc, _ := newTestService(t)
	usr := register(t, svc, "Awe Mwamba", "awe@test.cd")

	if err := svc.ResendConfirmation(usr.Email); err != nil {
		t.Fatalf("ResendConfirmation() error = %v", err)
	}

	token := confirmationToken(t, usr.Email)
	if _, err := svc.ConfirmEmail(token); err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}

	if err := svc.ResendConfirmation(usr.Email); err != user.ErrAlreadyConfirmed {
		t.Errorf("ResendConfirmation() error = %v, want %v", err, user.ErrAlreadyConfirmed)
	}
	if err := svc.ResendConfirmation("nobody@test.cd"); err != user.ErrNotFound {
		t.Errorf("ResendConfirmation() error = %v, want %v", err, user.ErrNotFound)
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "Awe Mwamba", "awe@test.cd")

	ru := user.RegisterUser{
		Name:     "Imposter",
		Email:    "Awe@Test.CD",
		Password: testPassword,
		Role:     auth.RoleStudent,
	}
	if err := ru.Validate(svc); err == nil {
		t.Error("Validate() expected uniqueness error on duplicate email")
	}
}

func TestService_PasswordReset(t *testing.T) {
	svc, _ := newTestService(t)
	usr := register(t, svc, "Awe Mwamba", "awe@test.cd")

	if err := svc.RequestPasswordReset(usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	var uid, token string
	for _, msg := range emailsvc.SentMessages {
		if !strings.Contains(msg.TextContent, "reset-password") {
			continue
		}
		for _, part := range []string{"uid=", "token="} {
			idx := strings.Index(msg.TextContent, part)
			if idx < 0 {
				t.Fatalf("reset mail missing %q: %s", part, msg.TextContent)
			}
			val := msg.TextContent[idx+len(part):]
			if amp := strings.IndexByte(val, '&'); amp >= 0 {
				val = val[:amp]
			}
			if part == "uid=" {
				uid = val
			} else {
				token = val
			}
		}
	}
	if uid == "" || token == "" {
		t.Fatal("no password reset email captured")
	}

	newPwd := "An0ther.S3cret!"
	err := svc.ResetPassword(user.ResetUserPassword{
		UID:             uid,
		Token:           token,
		Password:        newPwd,
		PasswordConfirm: newPwd,
	})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	got, err := svc.GetByEmail(usr.Email)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if err = got.CheckPassword(newPwd); err != nil {
		t.Error("ResetPassword() new password does not verify")
	}

	// the token self-invalidates once the password changes
	err = svc.ResetPassword(user.ResetUserPassword{
		UID:             uid,
		Token:           token,
		Password:        "Th1rd.S3cret!",
		PasswordConfirm: "Th1rd.S3cret!",
	})
	if err != user.ErrInvalidToken {
		t.Errorf("ResetPassword() reuse error = %v, want %v", err, user.ErrInvalidToken)
	}
}

func TestService_adminOpsRequireAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	student := auth.Context{UserID: "sid", Roles: []auth.Role{auth.RoleStudent}}
	admin := auth.Context{UserID: "aid", Roles: []auth.Role{auth.RoleAdmin}}

	if _, err := svc.QueryAll(student); err != auth.ErrForbidden {
		t.Errorf("QueryAll() as student error = %v, want %v", err, auth.ErrForbidden)
	}
	if _, err := svc.Create(student, user.NewUser{}); err != auth.ErrForbidden {
		t.Errorf("Create() as student error = %v, want %v", err, auth.ErrForbidden)
	}
	if err := svc.Delete(student, "x"); err != auth.ErrForbidden {
		t.Errorf("Delete() as student error = %v, want %v", err, auth.ErrForbidden)
	}

	usr, err := svc.Create(admin, user.NewUser{
		Name:      "Prof Kalume",
		Email:     "prof@test.cd",
		Password:  testPassword,
		Roles:     []auth.Role{auth.RoleInstructor},
		Confirmed: true,
	})
	if err != nil {
		t.Fatalf("Create() as admin error = %v", err)
	}
	if !usr.EmailConfirmed {
		t.Error("Create() with Confirmed did not confirm the account")
	}

	instructors, err := svc.QueryByRole(admin, auth.RoleInstructor)
	if err != nil {
		t.Fatalf("QueryByRole() error = %v", err)
	}
	if len(instructors) != 1 {
		t.Errorf("QueryByRole() returned %d users, want 1", len(instructors))
	}
}
