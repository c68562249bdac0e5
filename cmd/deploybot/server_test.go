package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/deploybot/internal/shell/configsource"
	"github.com/artpar/deploybot/internal/shell/github"
	"github.com/artpar/deploybot/internal/shell/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: time.Second,
		},
		Database: DatabaseConfig{DSN: filepath.Join(t.TempDir(), "deploybot.db")},
		Deploy:   DeployConfig{ConfigSource: ConfigSourceGitHub},
		Secrets:  SecretsConfig{Source: SecretsSourceEnv},
		Deliveries: DeliveriesConfig{
			Retention:     time.Hour,
			PruneInterval: time.Hour,
		},
	}
}

// =============================================================================
// Credential Tests
// =============================================================================

func TestResolveCredentials_Fallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitHub.Token = "plain-token"
	cfg.GitHub.WebhookSecret = "plain-secret"

	creds, err := resolveCredentials(context.Background(), cfg, secrets.NewEnvResolver())

	require.NoError(t, err)
	assert.Equal(t, "plain-token", creds.GitHubToken)
	assert.Equal(t, "plain-secret", creds.WebhookSecret)
}

func TestResolveCredentials_FromResolver(t *testing.T) {
	t.Setenv("DEPLOYBOT_TEST_TOKEN", "env-token")
	cfg := testConfig(t)
	cfg.GitHub.Token = "plain-token"
	cfg.Secrets.GitHubTokenID = "DEPLOYBOT_TEST_TOKEN"

	creds, err := resolveCredentials(context.Background(), cfg, secrets.NewEnvResolver())

	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.GitHubToken)
	assert.Empty(t, creds.WebhookSecret)
}

func TestResolveCredentials_Missing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.WebhookSecretID = "DEPLOYBOT_TEST_UNSET_SECRET"

	_, err := resolveCredentials(context.Background(), cfg, secrets.NewEnvResolver())

	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

// =============================================================================
// Config Source Tests
// =============================================================================

func TestNewConfigSource(t *testing.T) {
	gh, err := github.NewClient(github.Config{}, nil)
	require.NoError(t, err)

	cfg := testConfig(t)
	source, err := newConfigSource(cfg, gh, nil)
	require.NoError(t, err)
	assert.Same(t, gh, source)

	cfg.Deploy.ConfigSource = ConfigSourceGit
	cfg.Deploy.GitMirrorRoot = t.TempDir()
	source, err = newConfigSource(cfg, gh, nil)
	require.NoError(t, err)
	assert.IsType(t, &configsource.GitSource{}, source)

	cfg.Deploy.GitMirrorRoot = ""
	_, err = newConfigSource(cfg, gh, nil)
	assert.Error(t, err)

	cfg.Deploy.ConfigSource = "svn"
	_, err = newConfigSource(cfg, gh, nil)
	assert.Error(t, err)
}

// =============================================================================
// Server Tests
// =============================================================================

func TestNewServer_RoutesAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	server, err := NewServer(context.Background(), cfg, SetupLogger(cfg))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestNewServer_MissingSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.GitHubTokenID = "DEPLOYBOT_TEST_UNSET_TOKEN"

	_, err := NewServer(context.Background(), cfg, SetupLogger(cfg))

	require.Error(t, err)
	var sErr *ServerError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, ExitSecretsError, sErr.ExitCode)
}

func TestServerError(t *testing.T) {
	inner := secrets.ErrSecretEmpty
	err := &ServerError{Op: "NewServer", Err: inner, ExitCode: ExitSecretsError}

	assert.Equal(t, "NewServer: secret is empty", err.Error())
	assert.ErrorIs(t, err, inner)
}
