package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL is how long an issued bearer token stays valid.
const tokenTTL = 7 * 24 * time.Hour

// ErrBadCredentials is returned for a wrong password or an invalid token.
var ErrBadCredentials = errors.New("invalid credentials")

// Authenticator issues and verifies bearer tokens for the single configured
// password.
type Authenticator struct {
	secret       []byte
	passwordHash [sha256.Size]byte
}

// NewAuthenticator creates an Authenticator. The password is stored hashed
// so comparisons are constant-time and leak no length information.
func NewAuthenticator(secret, password string) *Authenticator {
	return &Authenticator{
		secret:       []byte(secret),
		passwordHash: sha256.Sum256([]byte(password)),
	}
}

// Login checks the password and returns a signed token on success.
func (a *Authenticator) Login(password string) (string, error) {
	hash := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(hash[:], a.passwordHash[:]) != 1 {
		return "", ErrBadCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"authorized": true,
		"iat":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a bearer token's signature and expiry.
func (a *Authenticator) Verify(token string) error {
	_, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return ErrBadCredentials
	}
	return nil
}

// Require wraps a handler and rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if err := a.Verify(strings.TrimPrefix(header, "Bearer ")); err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r)
	}
}
