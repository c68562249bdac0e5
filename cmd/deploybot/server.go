package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/deploybot/internal/shell/api"
	"github.com/artpar/deploybot/internal/shell/configsource"
	"github.com/artpar/deploybot/internal/shell/events"
	"github.com/artpar/deploybot/internal/shell/github"
	"github.com/artpar/deploybot/internal/shell/lock"
	"github.com/artpar/deploybot/internal/shell/orchestrator"
	"github.com/artpar/deploybot/internal/shell/secrets"
	"github.com/artpar/deploybot/internal/shell/store"
	"github.com/artpar/deploybot/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitSecretsError    = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the deploybot application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	bus        *events.Bus
	janitor    *workers.Janitor
	logger     *slog.Logger

	// cancelWork aborts in-flight event handling once the shutdown
	// timeout has passed.
	cancelWork context.CancelFunc
}

// credentials are the secrets resolved at startup.
type credentials struct {
	GitHubToken   string
	WebhookSecret string
}

// NewServer creates a new server with the given config.
func NewServer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Server, error) {
	// Resolve credentials
	resolver, err := newSecretResolver(ctx, cfg, logger)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitSecretsError}
	}
	creds, err := resolveCredentials(ctx, cfg, resolver)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitSecretsError}
	}
	if creds.GitHubToken == "" {
		logger.Warn("no GitHub token configured, API calls will be unauthenticated")
	}
	if creds.WebhookSecret == "" {
		logger.Warn("no webhook secret configured, signatures will not be verified")
	}

	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	gh, err := github.NewClient(github.Config{
		BaseURL:   cfg.GitHub.APIURL,
		Token:     creds.GitHubToken,
		UserAgent: "deploybot/" + Version,
		Timeout:   cfg.GitHub.Timeout,
	}, logger)
	if err != nil {
		s.Close()
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
	}

	source, err := newConfigSource(cfg, gh, logger)
	if err != nil {
		s.Close()
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
	}

	// Orchestration
	locks := lock.NewStore(logger)
	configs := orchestrator.NewResolver(source, cfg.Deploy.ConfigPath, logger)
	dispatcher := orchestrator.NewDispatcher(gh, logger)
	evaluator := orchestrator.NewEvaluator(configs, gh, dispatcher, locks, logger)
	commands := orchestrator.NewCommandHandler(configs, gh, dispatcher, locks, orchestrator.CommandHandlerConfig{
		FailurePrefix: cfg.Deploy.CommentPrefix,
	}, logger)
	teardown := orchestrator.NewTeardownHandler(gh, logger)

	workCtx, cancelWork := context.WithCancel(context.Background())
	bus := events.NewBus(workCtx, evaluator, commands, teardown, logger)

	handler := api.NewHandler(s, bus, creds.WebhookSecret, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	janitor := workers.NewJanitor(s, workers.JanitorConfig{
		Interval:  cfg.Deliveries.PruneInterval,
		Retention: cfg.Deliveries.Retention,
	}, logger)

	logger.Info("orchestrator configured",
		"config_source", cfg.Deploy.ConfigSource,
		"config_path", configs.Path(),
		"github_api", gh.BaseURL(),
	)

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		bus:        bus,
		janitor:    janitor,
		logger:     logger,
		cancelWork: cancelWork,
	}, nil
}

// newSecretResolver returns the resolver selected by secrets.source.
func newSecretResolver(ctx context.Context, cfg *Config, logger *slog.Logger) (secrets.Resolver, error) {
	switch cfg.Secrets.Source {
	case SecretsSourceAWS:
		return secrets.NewAWSResolverFromConfig(ctx, secrets.AWSConfig{
			Region:   cfg.Secrets.Region,
			Endpoint: cfg.Secrets.Endpoint,
		}, logger)
	case SecretsSourceEnv, "":
		return secrets.NewEnvResolver(), nil
	default:
		return nil, fmt.Errorf("unknown secrets source %q", cfg.Secrets.Source)
	}
}

// resolveCredentials looks up the token and webhook secret, falling back
// to the plain config values when no secret id is set.
func resolveCredentials(ctx context.Context, cfg *Config, r secrets.Resolver) (credentials, error) {
	token, err := secrets.Lookup(ctx, r, cfg.Secrets.GitHubTokenID, cfg.GitHub.Token)
	if err != nil {
		return credentials{}, fmt.Errorf("github token: %w", err)
	}
	webhookSecret, err := secrets.Lookup(ctx, r, cfg.Secrets.WebhookSecretID, cfg.GitHub.WebhookSecret)
	if err != nil {
		return credentials{}, fmt.Errorf("webhook secret: %w", err)
	}
	return credentials{GitHubToken: token, WebhookSecret: webhookSecret}, nil
}

// newConfigSource returns the source deployment configs are read from.
func newConfigSource(cfg *Config, gh *github.Client, logger *slog.Logger) (orchestrator.ConfigSource, error) {
	switch cfg.Deploy.ConfigSource {
	case ConfigSourceGitHub, "":
		return gh, nil
	case ConfigSourceGit:
		if cfg.Deploy.GitMirrorRoot == "" {
			return nil, errors.New("git config source requires deploy.git_mirror_root")
		}
		return configsource.NewGitSource(cfg.Deploy.GitMirrorRoot, logger), nil
	default:
		return nil, fmt.Errorf("unknown config source %q", cfg.Deploy.ConfigSource)
	}
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Start delivery janitor
	s.janitor.Start()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.Shutdown(context.Background())
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. Webhooks already accepted are
// given until the shutdown timeout to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting webhooks
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Drain in-flight events
	done := make(chan struct{})
	go func() {
		s.bus.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.logger.Warn("shutdown timeout reached, cancelling in-flight events")
		s.cancelWork()
		<-done
	}
	s.cancelWork()

	// Stop delivery janitor
	s.janitor.Stop()

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
