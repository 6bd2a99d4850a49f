package user

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/darasa-lms/darasa/core"
)

var nowFunc = time.Now // mockable

// ConfirmationClaims is the payload of an email-confirmation token:
// sub carries the user ID, email the address being confirmed and jti a
// fresh unique ID. The jti is generated but not tracked; a valid token
// may be presented more than once until it expires.
type ConfirmationClaims struct {
	jwt.StandardClaims
	Email string `json:"email"`
}

// ConfirmationTokens issues and validates signed, time-limited
// email-confirmation tokens. Both operations are stateless and safe for
// concurrent use.
type ConfirmationTokens struct {
	conf *core.Config
}

func NewConfirmationTokens(conf *core.Config) ConfirmationTokens {
	return ConfirmationTokens{conf: conf}
}

// Issue signs a confirmation token for (userID, email), expiring after the
// configured number of hours.
func (t ConfirmationTokens) Issue(userID, email string) (string, error) {
	if t.conf.SecretKey == "" {
		return "", core.NewShutdownError("secret key is not configured")
	}

	now := nowFunc()
	claims := &ConfirmationClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Id:        uuid.New().String(),
			Issuer:    t.conf.ConfirmationToken.Issuer,
			Audience:  t.conf.ConfirmationToken.Audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(t.conf.ConfirmationToken.ExpirationHours) * time.Hour).Unix(),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.conf.SecretKey))
}

// Validate checks the token's signature, issuer, audience and expiry
// (no clock-skew tolerance) and returns the embedded claims.
func (t ConfirmationTokens) Validate(tokenStr string) (*ConfirmationClaims, error) {
	if t.conf.SecretKey == "" {
		return nil, core.NewShutdownError("secret key is not configured")
	}

	claims := new(ConfirmationClaims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(t.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(t.conf.ConfirmationToken.Issuer, true) {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(t.conf.ConfirmationToken.Audience, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
