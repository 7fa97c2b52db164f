package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"marketplace/internal/errors"
)

// BearerAuthorizer verifies an OIDC bearer token and requires a realm role.
// This is the gate for deployments with a real identity provider; the shared
// token stays the default for the single-operator setup.
type BearerAuthorizer struct {
	verifier *oidc.IDTokenVerifier
	role     string
}

// NewBearerAuthorizer discovers the provider configuration from the issuer.
// Call once in main; discovery hits {issuer}/.well-known/openid-configuration.
func NewBearerAuthorizer(ctx context.Context, issuerURL, clientID, role string) (*BearerAuthorizer, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, err
	}

	return &BearerAuthorizer{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		role:     role,
	}, nil
}

func (a *BearerAuthorizer) Authorize(r *http.Request) error {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New(errors.ErrForbidden, "Missing Authorization header", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return errors.New(errors.ErrForbidden, "Invalid Authorization header format", nil)
	}

	// Covers expired tokens, bad signatures and wrong issuer, using the
	// provider's cached keys.
	idToken, err := a.verifier.Verify(r.Context(), parts[1])
	if err != nil {
		return errors.New(errors.ErrForbidden, "Invalid or expired token", err)
	}

	var claims RealmClaims
	if err := idToken.Claims(&claims); err != nil {
		return errors.New(errors.ErrForbidden, "Failed to parse claims", err)
	}

	if a.role != "" && !claims.HasRole(a.role) {
		return errors.New(errors.ErrForbidden, "Missing required role", nil)
	}

	return nil
}
