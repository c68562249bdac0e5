// Command deploybot is a GitHub webhook receiver. Push, status and
// check_run events create deployments for targets whose auto_deploy_on ref
// matches, "/deploy <target>" pull request comments deploy the head branch,
// and closing a pull request tears down its transient environments.
//
// Targets are read from the repository's deploy config, fetched through the
// GitHub contents API or a local git mirror. Settings come from an optional
// config file and DEPLOYBOT_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to config file")
	checkConfig := flag.Bool("check-config", false, "Validate configuration, print the resolved settings and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("deploybot %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	fields := startupFields(cfg, *configFile)

	if *checkConfig {
		logger.Info("configuration valid", fields...)
		return ExitSuccess
	}

	logger.Info("starting deploybot", append([]any{"version", Version}, fields...)...)

	ctx := context.Background()

	server, err := NewServer(ctx, cfg, logger)
	if err != nil {
		return exitCode(logger, "failed to create server", err)
	}

	if err := server.Start(ctx); err != nil {
		return exitCode(logger, "server error", err)
	}

	return ExitSuccess
}

// startupFields describes where deploybot reads targets from and which
// GitHub API it talks to.
func startupFields(cfg *Config, configFile string) []any {
	if configFile == "" {
		configFile = "(environment only)"
	}
	fields := []any{
		"config_file", configFile,
		"listen", cfg.Server.Address(),
		"github_api", cfg.GitHub.APIURL,
		"config_source", cfg.Deploy.ConfigSource,
		"deploy_config", cfg.Deploy.ConfigPath,
		"secrets_source", cfg.Secrets.Source,
	}
	if cfg.Deploy.ConfigSource == ConfigSourceGit {
		fields = append(fields, "git_mirror_root", cfg.Deploy.GitMirrorRoot)
	}
	return fields
}

// exitCode logs err and maps it to the process exit status.
func exitCode(logger *slog.Logger, msg string, err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		logger.Error(msg, "error", sErr.Err, "operation", sErr.Op)
		return sErr.ExitCode
	}
	logger.Error(msg, "error", err)
	return ExitConfigError
}
