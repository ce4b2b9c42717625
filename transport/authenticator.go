package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Authenticator verifies the credentials of an inbound request.
type Authenticator interface {
	// Authenticate returns the request to serve, usually carrying the caller identity in its context.
	// Failures should be *AuthError values.
	Authenticate(ctx context.Context, r *http.Request) (*http.Request, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) (*http.Request, error)

// Authenticate implements Authenticator
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	return f(ctx, r)
}

// FirstOf tries each authenticator in order. An authenticator that finds no credentials
// of its kind passes the request on; the first success or any other failure ends the chain.
func FirstOf(authenticators ...Authenticator) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, r *http.Request) (*http.Request, error) {
		var last error = NewAuthError(AuthErrorCodeMissingCredentials, "no credentials provided")
		for _, a := range authenticators {
			authed, err := a.Authenticate(ctx, r)
			if err == nil {
				return authed, nil
			}
			var authErr *AuthError
			if !errors.As(err, &authErr) || authErr.Code != AuthErrorCodeMissingCredentials {
				return nil, err
			}
			last = err
		}
		return nil, last
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Scheme  string `json:"scheme,omitempty"`
}

func (e *AuthError) Error() string {
	if e.Scheme != "" {
		return fmt.Sprintf("authentication failed [%s:%s]: %s", e.Scheme, e.Code, e.Message)
	}
	return fmt.Sprintf("authentication failed [%s]: %s", e.Code, e.Message)
}

// Common auth error codes
const (
	AuthErrorCodeMissingCredentials = "missing_credentials"
	AuthErrorCodeInvalidCredentials = "invalid_credentials"
	AuthErrorCodeExpiredCredentials = "expired_credentials"
)

// NewAuthError creates a new authentication error
func NewAuthError(code, message string) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
	}
}

// NewAuthErrorWithScheme creates a new authentication error with scheme information
func NewAuthErrorWithScheme(code, message, scheme string) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Scheme:  scheme,
	}
}
