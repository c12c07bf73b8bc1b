package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "roster/internal/jwt_token"
	id "roster/pkg/domain"
)

func TestTokengenIssuesValidToken(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("JWT_ISSUER", "iss")
	t.Setenv("JWT_AUDIENCE", "aud")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--caller", "ci-bot", "--ttl", "5m"})
	require.NoError(t, cmd.Execute())

	claims, err := jwttoken.NewJWTService("k", "iss", "aud").ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, id.CallerID("ci-bot"), claims.Caller())
}

func TestTokengenRequiresCaller(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}
