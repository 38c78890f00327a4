// Package credsecret loads S3 access keys from an AWS Secrets Manager secret.
//
// The secret value is a JSON document:
//
//	{"access_key_id": "AKIA...", "secret_access_key": "...", "session_token": ""}
//
// The names used by the IAM console export (AccessKeyId, SecretAccessKey,
// SessionToken) are accepted too. Values are never logged.
package credsecret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// AWS error codes returned by Secrets Manager.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// ProviderSource is reported in aws.Credentials.Source.
const ProviderSource = "SecretsManagerProvider"

var (
	// ErrSecretNotFound is returned when the secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when the secret has no value.
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrAccessDenied is returned when the caller may not read the secret.
	ErrAccessDenied = errors.New("access denied to secret")

	// ErrMalformedSecret is returned when the value is not a usable key pair.
	ErrMalformedSecret = errors.New("secret does not hold an access key pair")
)

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider implements aws.CredentialsProvider by reading a secret on every
// Retrieve. Wrap it in aws.NewCredentialsCache.
type Provider struct {
	api      ManagerAPI
	secretID string
	logger   *slog.Logger
}

// NewProvider returns a Provider reading secretID through api. A nil logger
// discards output.
func NewProvider(api ManagerAPI, secretID string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provider{api: api, secretID: secretID, logger: logger}
}

// New builds a Provider over a Secrets Manager client created from the
// default AWS configuration. region may be empty.
func New(ctx context.Context, region, secretID string, logger *slog.Logger) (*Provider, error) {
	if secretID == "" {
		return nil, fmt.Errorf("secret id cannot be empty")
	}

	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewProvider(secretsmanager.NewFromConfig(cfg), secretID, logger), nil
}

type secretKeys struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`

	ConsoleAccessKeyID     string `json:"AccessKeyId"`
	ConsoleSecretAccessKey string `json:"SecretAccessKey"`
	ConsoleSessionToken    string `json:"SessionToken"`
}

// Retrieve implements aws.CredentialsProvider.
func (p *Provider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	p.logger.DebugContext(ctx, "retrieving credentials secret", "secret_id", p.secretID)

	output, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case ResourceNotFoundException:
				return aws.Credentials{}, wrap(ErrSecretNotFound)
			case AccessDeniedException:
				return aws.Credentials{}, wrap(ErrAccessDenied)
			}
			return aws.Credentials{}, fmt.Errorf("GetSecretValue operation failed: %s: %s",
				apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		p.logger.ErrorContext(ctx, "failed to retrieve credentials secret",
			"secret_id", p.secretID,
			"error", err)
		return aws.Credentials{}, fmt.Errorf("GetSecretValue operation failed: %w", err)
	}

	var raw []byte
	switch {
	case output.SecretString != nil:
		raw = []byte(*output.SecretString)
	case output.SecretBinary != nil:
		raw = output.SecretBinary
	}
	if len(raw) == 0 {
		return aws.Credentials{}, wrap(ErrSecretEmpty)
	}

	var keys secretKeys
	if err := json.Unmarshal(raw, &keys); err != nil {
		return aws.Credentials{}, wrap(ErrMalformedSecret)
	}
	creds := aws.Credentials{
		AccessKeyID:     firstNonEmpty(keys.AccessKeyID, keys.ConsoleAccessKeyID),
		SecretAccessKey: firstNonEmpty(keys.SecretAccessKey, keys.ConsoleSecretAccessKey),
		SessionToken:    firstNonEmpty(keys.SessionToken, keys.ConsoleSessionToken),
		Source:          ProviderSource,
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, wrap(ErrMalformedSecret)
	}

	p.logger.DebugContext(ctx, "credentials secret retrieved", "secret_id", p.secretID)
	return creds, nil
}

func wrap(err error) error {
	return fmt.Errorf("credentials secret: %w", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
