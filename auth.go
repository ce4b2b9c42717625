package aipkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Songmu/flextime"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mashiike/aipkit/transport"
)

type jwtContextKey struct{}
type jwtTokenContextKey struct{}

// GetJWTClaims retrieves JWT claims from the request context
func GetJWTClaims(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(jwtContextKey{}).(jwt.MapClaims)
	return claims, ok
}

// GetJWTToken retrieves the raw JWT token string from the request context
func GetJWTToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(jwtTokenContextKey{}).(string)
	return token, ok
}

// GetJWTSubject retrieves the subject (sub) claim from JWT.
// Partners use it as the authenticated leader id.
func GetJWTSubject(ctx context.Context) (string, bool) {
	claims, ok := GetJWTClaims(ctx)
	if !ok {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// StaticAPIKeyAuthenticator accepts requests carrying a fixed API key in a header
type StaticAPIKeyAuthenticator struct {
	APIKey     string
	HeaderName string // default: X-API-Key
}

// Authenticate implements transport.Authenticator
func (s StaticAPIKeyAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	headerName := s.HeaderName
	if headerName == "" {
		headerName = "X-API-Key"
	}

	apiKey := r.Header.Get(headerName)
	if apiKey == "" {
		return nil, transport.NewAuthErrorWithScheme(
			transport.AuthErrorCodeMissingCredentials,
			fmt.Sprintf("missing %s header", headerName),
			"apiKey",
		)
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.APIKey)) != 1 {
		return nil, transport.NewAuthErrorWithScheme(
			transport.AuthErrorCodeInvalidCredentials,
			"invalid API key",
			"apiKey",
		)
	}
	return r, nil
}

// JWTAuthenticator accepts requests carrying a signed bearer JWT
type JWTAuthenticator struct {
	// SecretKey is used for HMAC signing methods (HS256, HS384, HS512)
	SecretKey []byte

	// SigningMethod specifies the JWT signing method (default: HS256)
	SigningMethod jwt.SigningMethod

	// Audience specifies the expected audience (aud) claim.
	// If empty, audience validation is skipped
	Audience string

	// ValidateFunc allows custom validation of JWT claims
	ValidateFunc func(claims jwt.MapClaims) error
}

// NewJWTAuthenticator creates a new JWT authenticator with HMAC-SHA256
func NewJWTAuthenticator(secretKey []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		SecretKey:     secretKey,
		SigningMethod: jwt.SigningMethodHS256,
	}
}

// WithValidateFunc sets a custom validation function for JWT claims
func (j *JWTAuthenticator) WithValidateFunc(fn func(claims jwt.MapClaims) error) *JWTAuthenticator {
	j.ValidateFunc = fn
	return j
}

// WithAudience sets the expected audience for JWT validation
func (j *JWTAuthenticator) WithAudience(audience string) *JWTAuthenticator {
	j.Audience = audience
	return j
}

func (j *JWTAuthenticator) signingMethod() jwt.SigningMethod {
	if j.SigningMethod == nil {
		return jwt.SigningMethodHS256
	}
	return j.SigningMethod
}

func bearerError(code, message string) *transport.AuthError {
	return transport.NewAuthErrorWithScheme(code, message, "bearer")
}

// Authenticate implements transport.Authenticator
func (j *JWTAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, bearerError(transport.AuthErrorCodeMissingCredentials, "missing Authorization header")
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, "invalid Authorization header format")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.signingMethod().Alg()}),
		jwt.WithTimeFunc(flextime.Now),
	}
	if j.Audience != "" {
		opts = append(opts, jwt.WithAudience(j.Audience))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return j.SecretKey, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, bearerError(transport.AuthErrorCodeExpiredCredentials, "JWT token has expired")
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, "invalid audience")
	case err != nil:
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, fmt.Sprintf("invalid JWT: %v", err))
	}

	if j.ValidateFunc != nil {
		if err := j.ValidateFunc(claims); err != nil {
			return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, fmt.Sprintf("JWT validation failed: %v", err))
		}
	}

	newCtx := context.WithValue(r.Context(), jwtContextKey{}, claims)
	newCtx = context.WithValue(newCtx, jwtTokenContextKey{}, tokenString)
	return r.WithContext(newCtx), nil
}
