package folio

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialChecker validates the opaque bearer credential presented on
// admin API calls. Token issuance happens elsewhere; the server only
// verifies. Deployments pick the strategy (or several) that matches how
// their tokens are minted.
type CredentialChecker interface {
	// Check returns nil when the token is a valid admin credential.
	Check(token string) error
}

// StaticSecretChecker accepts a single shared admin secret, compared in
// constant time.
type StaticSecretChecker struct {
	Secret string
}

func (c StaticSecretChecker) Check(token string) error {
	if c.Secret == "" {
		return fmt.Errorf("%w: admin secret missing", ErrMisconfigured)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.Secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// adminClaims carries the single custom claim the admin token uses.
type adminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTChecker accepts HS256 tokens signed with Secret whose role claim is
// "admin". Expiry is enforced by the parser's registered-claims
// validation.
type JWTChecker struct {
	Secret []byte
}

func (c JWTChecker) Check(token string) error {
	if len(c.Secret) == 0 {
		return fmt.Errorf("%w: JWT secret missing", ErrMisconfigured)
	}
	claims := &adminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Role != "admin" {
		return ErrUnauthorized
	}
	return nil
}

// anyChecker authorizes a token accepted by any of its checkers.
// Misconfiguration surfaces only when no checker can run at all.
type anyChecker []CredentialChecker

func (cs anyChecker) Check(token string) error {
	if len(cs) == 0 {
		return fmt.Errorf("%w: no credential checker configured", ErrMisconfigured)
	}
	var last error
	for _, c := range cs {
		err := c.Check(token)
		if err == nil {
			return nil
		}
		last = err
	}
	return last
}
