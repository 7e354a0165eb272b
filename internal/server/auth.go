package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/partyq/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticator gates admin-only routes behind a bearer token.
//
// There is a single admin whose bcrypt password hash is configured ahead of time. Tokens are HS256 JWTs whose
// subject is the admin user name.
type Authenticator struct {
	user   string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator validates cfg and returns an Authenticator.
func NewAuthenticator(cfg shared.AuthConfig) (*Authenticator, error) {
	switch {
	case cfg.AdminUser == "":
		return nil, fmt.Errorf("%w: auth.admin_user", shared.ErrMissingConfig)
	case cfg.AdminPasswordHash == "":
		return nil, fmt.Errorf("%w: auth.admin_password_hash", shared.ErrMissingConfig)
	case cfg.SecretKey == "":
		return nil, fmt.Errorf("%w: auth.secret_key", shared.ErrMissingConfig)
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("%w: auth.admin_password_hash is not a bcrypt hash", shared.ErrInvalidConfig)
	}

	return &Authenticator{
		user:   cfg.AdminUser,
		hash:   []byte(cfg.AdminPasswordHash),
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source used to issue and validate tokens.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// HashPassword generates a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Login checks the credentials and issues a signed token.
func (a *Authenticator) Login(username, password string) (*TokenResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.user)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return nil, fmt.Errorf("%w: incorrect username or password", shared.ErrUnauthorized)
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   a.user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{AccessToken: signed, TokenType: "bearer", ExpiresIn: int(a.ttl.Seconds())}, nil
}

// Validate parses a token and checks its signature, expiry and subject.
func (a *Authenticator) Validate(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != a.user {
		return fmt.Errorf("%w: unexpected subject", shared.ErrUnauthorized)
	}
	return nil
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			err = a.Validate(token)
		}
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}
