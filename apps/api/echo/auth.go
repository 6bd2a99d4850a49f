package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/user"
)

const contextUserKey = "user"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`    // -> STUDENT PORTAL
	IsInstructor bool     `json:"is_instructor,omitempty"` // -> INSTRUCTOR PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`      // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

// Context translates the claims into the explicit caller identity the
// services authorize against.
func (c Claims) Context() auth.Context {
	roles := make([]auth.Role, 0, len(c.Roles))
	for _, role := range c.Roles {
		roles = append(roles, auth.Role(role))
	}
	return auth.Context{UserID: c.Subject, Roles: roles}
}

type jwtAuth struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

func (ja *jwtAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(ja.config)
}

func (ja *jwtAuth) getUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	roles := make([]string, 0, len(usr.Roles))
	for _, role := range usr.Roles {
		roles = append(roles, string(role))
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ja.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ja.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		IsStudent:    usr.IsStudent(),
		IsInstructor: usr.IsInstructor(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        roles,
	}
}

func (ja *jwtAuth) authenticate(email, pwd string, svc user.Service) (*Claims, error) {
	usr, err := svc.Authenticate(email, pwd)
	if err != nil {
		return nil, err
	}
	return ja.getUserClaims(usr), nil
}

// generateToken generates a signed JWT token string representing the user Claims.
func (ja *jwtAuth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(ja.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(ja.config.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func (ja *jwtAuth) getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(ja.config.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getAuthContext is the per-request identity used by all service calls.
func (ja *jwtAuth) getAuthContext(ctx echo.Context) (auth.Context, error) {
	claims, err := ja.getContextClaims(ctx)
	if err != nil {
		return auth.Context{}, err
	}
	return claims.Context(), nil
}

func (ja *jwtAuth) getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = ja.getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func (ja *jwtAuth) refreshToken(ctx echo.Context, svc user.Service) (string, error) {
	claims, err := ja.getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := ja.getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ja.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := ja.getUserClaims(usr, claims.OrigIssuedAt)
	token, err := ja.generateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}

// adminMiddleware restricts a group to admins.
func (ja *jwtAuth) adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := ja.getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}
