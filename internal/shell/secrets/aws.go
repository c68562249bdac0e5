package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// AWS error codes mapped to package errors.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSConfig configures the Secrets Manager client.
type AWSConfig struct {
	Region   string
	Endpoint string // Custom endpoint, e.g. LocalStack
}

// AWSResolver reads secrets from AWS Secrets Manager.
type AWSResolver struct {
	api    ManagerAPI
	logger *slog.Logger
}

// NewAWSResolver creates a resolver using api.
func NewAWSResolver(api ManagerAPI, logger *slog.Logger) *AWSResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSResolver{
		api:    api,
		logger: logger.With("component", "aws_secrets"),
	}
}

// NewAWSResolverFromConfig loads the default AWS configuration chain and
// creates a resolver.
func NewAWSResolverFromConfig(ctx context.Context, cfg AWSConfig, logger *slog.Logger) (*AWSResolver, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewAWSResolver(api, logger), nil
}

// Resolve returns the string (or binary) value of secret id.
func (r *AWSResolver) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	r.logger.Debug("retrieving secret", "secret_name", id)

	output, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case ResourceNotFoundException:
				return "", fmt.Errorf("%s: %w", id, ErrSecretNotFound)
			case AccessDeniedException:
				return "", fmt.Errorf("%s: %w", id, ErrAccessDenied)
			}
			return "", fmt.Errorf("get secret %s: %s: %s", id, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}

	switch {
	case output.SecretString != nil && *output.SecretString != "":
		return *output.SecretString, nil
	case len(output.SecretBinary) > 0:
		return string(output.SecretBinary), nil
	default:
		return "", fmt.Errorf("%s: %w", id, ErrSecretEmpty)
	}
}
