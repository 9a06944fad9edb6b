package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDClaimsRequireVerifiedEmail(t *testing.T) {
	yes, no := true, false

	ident, err := idClaims{Email: " Ada@Example.com ", EmailVerified: &yes}.identity("sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", ident.UID)
	assert.Equal(t, "ada@example.com", ident.Email)

	tests := map[string]idClaims{
		"claim missing": {Email: "admin@shop.test"},
		"claim false":   {Email: "admin@shop.test", EmailVerified: &no},
		"no email":      {EmailVerified: &yes},
		"blank email":   {Email: "  ", EmailVerified: &yes},
	}
	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := claims.identity("sub-2")
			assert.Error(t, err)
		})
	}
}
