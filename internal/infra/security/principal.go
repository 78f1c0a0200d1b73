package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// principalClaims are the registered and custom claims carried by platform
// access tokens. Token issuance happens in the identity service; this
// resolver only verifies and maps claims onto a Principal.
type principalClaims struct {
	jwt.RegisteredClaims
	Type        string   `json:"typ,omitempty"`
	TenantID    string   `json:"tenant,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Positions   []string `json:"positions,omitempty"`
	Permissions []string `json:"perms,omitempty"`
}

// JWTPrincipalResolver resolves bearer tokens into principals using a
// shared HMAC verification key.
type JWTPrincipalResolver struct {
	secret []byte
	issuer string
}

// NewJWTPrincipalResolver constructs a resolver for the given verification key.
func NewJWTPrincipalResolver(secret, issuer string) (*JWTPrincipalResolver, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &JWTPrincipalResolver{secret: []byte(secret), issuer: issuer}, nil
}

// Resolve verifies the bearer token and maps its claims onto a Principal.
func (r *JWTPrincipalResolver) Resolve(_ context.Context, credentials string) (domain.Principal, error) {
	token := strings.TrimSpace(credentials)
	if token == "" {
		return domain.Principal{}, port.ErrNoCredentials
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims principalClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return domain.Principal{}, port.ErrInvalidCredentials
	}

	if claims.Subject == "" {
		return domain.Principal{}, port.ErrInvalidCredentials
	}

	principalType := domain.PrincipalUser
	if claims.Type == string(domain.PrincipalSystem) {
		principalType = domain.PrincipalSystem
	}

	principal := domain.Principal{
		ID:        claims.Subject,
		Type:      principalType,
		TenantID:  claims.TenantID,
		Roles:     claims.Roles,
		Positions: claims.Positions,
	}

	if len(claims.Permissions) > 0 {
		principal.Attributes = map[string]any{"permissions": claims.Permissions}
	}

	return principal, nil
}

var _ port.PrincipalResolver = (*JWTPrincipalResolver)(nil)
