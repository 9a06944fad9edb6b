package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ExternalIdentity is what the hosted auth provider tells us about a caller.
type ExternalIdentity struct {
	UID   string
	Email string
}

// OIDCVerifier checks ID tokens issued by the hosted auth provider.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider %s: %w", issuer, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*ExternalIdentity, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims idClaims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	return claims.identity(tok.Subject)
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// identity requires an email the provider marks as verified, since profiles
// are matched by email.
func (c idClaims) identity(subject string) (*ExternalIdentity, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return nil, errors.New("id token has no email")
	}
	if c.EmailVerified == nil || !*c.EmailVerified {
		return nil, errors.New("email not verified")
	}
	return &ExternalIdentity{UID: subject, Email: email}, nil
}
