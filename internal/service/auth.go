package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// TokenPrimer fetches a CSRF token ahead of the first mutating request.
type TokenPrimer interface {
	PrimeToken(ctx context.Context) error
}

// Auth covers sign-in, registration and the current user.
type Auth struct {
	client Client
	primer TokenPrimer
}

// NewAuth returns the auth service. primer may be nil, in which case
// PrimeCSRF is a no-op and the interceptor primes on demand.
func NewAuth(c Client, primer TokenPrimer) *Auth {
	return &Auth{client: c, primer: primer}
}

// Login posts email and password to /login.
func (s *Auth) Login(ctx context.Context, c types.Credentials) (types.AuthResponse, error) {
	c.Name = ""
	return s.authenticate(ctx, "login", c)
}

// Register posts name, email and password to /register.
func (s *Auth) Register(ctx context.Context, c types.Credentials) (types.AuthResponse, error) {
	return s.authenticate(ctx, "register", c)
}

func (s *Auth) authenticate(ctx context.Context, path string, c types.Credentials) (types.AuthResponse, error) {
	var out types.AuthResponse
	body, err := s.client.Do(ctx, transport.Request{Method: http.MethodPost, Path: path, Body: c})
	if err != nil {
		return out, err
	}
	if err := decode(body, "", &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out, nil
}

// CurrentUser returns the signed-in user. An empty body or an empty object
// yields the zero User.
func (s *Auth) CurrentUser(ctx context.Context) (types.User, error) {
	var u types.User
	body, err := s.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: "user"})
	if err != nil {
		return u, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return u, nil
	}
	if err := decode(body, "user", &u); err != nil {
		return u, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

// PrimeCSRF fetches a fresh token.
func (s *Auth) PrimeCSRF(ctx context.Context) error {
	if s.primer == nil {
		return nil
	}
	return s.primer.PrimeToken(ctx)
}
