package utils // package utils provides helper functions for token creation and hashing

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorToken is a signed JWT handed to a reception operator after a
// successful login.  The Token field contains the JWT string; Exp stores
// the UTC expiration.  Operator tokens are sent in the Authorization
// header on every admin endpoint.
type OperatorToken struct {
	Token string
	Exp   time.Time
}

// NewOperatorToken builds and signs an HS256 JWT for an operator
// session.  The JWT carries the standard subject (sub), expiration
// (exp) and issued at (iat) claims; there are no per-operator roles,
// every authenticated session has full admin access.
func NewOperatorToken(secret, operator string, ttlDays int) (OperatorToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": operator,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return OperatorToken{}, err
	}
	return OperatorToken{Token: signed, Exp: exp}, nil
}
