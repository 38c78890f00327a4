package s3encrypt

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// DefaultRegion is used when neither options nor the environment name one.
const DefaultRegion = "us-east-1"

// New builds an S3-backed Storage with the provided options.
// Credentials come from the default chain (environment, shared config,
// instance role) unless explicit keys are supplied with WithCredentials.
//
// Example:
//
//	store, err := s3encrypt.New(ctx,
//	    s3encrypt.WithRegion("us-west-2"),
//	    s3encrypt.WithMaxRetries(5),
//	)
func New(ctx context.Context, opts ...s3types.Option) (*S3Storage, error) {
	client, err := NewS3Client(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewS3Storage(client), nil
}

// NewS3Client builds the underlying *s3.Client.
func NewS3Client(ctx context.Context, opts ...s3types.Option) (*s3.Client, error) {
	clientCfg := &s3types.ClientConfig{
		MaxRetries: 3,
	}

	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	if clientCfg.CustomAWSConfig != nil {
		cfg = clientCfg.CustomAWSConfig.Copy()
	} else {
		loadOpts := []func(*config.LoadOptions) error{}
		if clientCfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(clientCfg.Region))
		}

		var err error
		cfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.NewError("client initialization", err).
				WithKind(errors.KindInvalidConfig)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	switch {
	case clientCfg.AccessKeyID != "" || clientCfg.SecretAccessKey != "":
		cfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			clientCfg.AccessKeyID,
			clientCfg.SecretAccessKey,
			clientCfg.SessionToken,
		))
	case clientCfg.CredentialsProvider != nil:
		cfg.Credentials = aws.NewCredentialsCache(clientCfg.CredentialsProvider)
	}

	if clientCfg.MaxRetries > 0 {
		maxAttempts := clientCfg.MaxRetries
		cfg.Retryer = func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
		}
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	switch {
	case clientCfg.CustomHTTPClient != nil:
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return s3.NewFromConfig(cfg, s3Opts...), nil
}
