package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pms/internal/domain/auth"
	"pms/internal/platform/config"
)

func withConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	prev := LoadConfig
	LoadConfig = func() config.Config { return cfg }
	t.Cleanup(func() { LoadConfig = prev })
}

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommandMintsParsableToken(t *testing.T) {
	withConfig(t, config.Config{JWTSecret: "cli-secret"})

	out, err := execute("token", "--npk", "1001", "--role", "operation")
	require.NoError(t, err)

	claims, err := auth.ParseToken("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "1001", claims.NPK)
	assert.Equal(t, auth.RoleOperation, claims.Role)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	withConfig(t, config.Config{JWTSecret: "cli-secret"})

	_, err := execute("token", "--npk", "1001", "--role", "manager")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	withConfig(t, config.Config{})

	_, err := execute("token", "--npk", "1001")
	require.Error(t, err)
}

func TestSeedCommandOnMemoryDatabase(t *testing.T) {
	withConfig(t, config.Config{
		DatabaseURL:       "sqlite::memory:",
		SeedAdminNPK:      "admin",
		SeedAdminPassword: "admin-password",
	})

	out, err := execute("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seed complete")
}
