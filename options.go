package s3encrypt

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the region from the credential chain or us-east-1.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of attempts for a failed request.
// Default is 3. Set to 0 to keep the SDK default.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout bounds each HTTP request made by the client.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithCredentials selects explicit credentials instead of the default chain.
// sessionToken may be empty.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithCredentialsProvider supplies credentials from provider. The provider is
// wrapped in a credentials cache.
func WithCredentialsProvider(provider aws.CredentialsProvider) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CredentialsProvider = provider
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) s3types.EncrypterOption {
	return func(c *s3types.EncrypterConfig) {
		c.Logger = logger
	}
}

// WithReporter sets the receiver of per-object outcomes.
func WithReporter(reporter s3types.Reporter) s3types.EncrypterOption {
	return func(c *s3types.EncrypterConfig) {
		c.Reporter = reporter
	}
}

// WithSSE sets the target encryption scheme. Default is AES256.
func WithSSE(sse s3types.SSEConfig) s3types.EncrypterOption {
	return func(c *s3types.EncrypterConfig) {
		c.SSE = sse
	}
}

// WithRunID sets the run identifier attached to every log line.
// A random one is generated when unset.
func WithRunID(runID string) s3types.EncrypterOption {
	return func(c *s3types.EncrypterConfig) {
		c.RunID = runID
	}
}
