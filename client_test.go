package s3encrypt

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

func TestNewS3Client(t *testing.T) {
	tests := []struct {
		name  string
		opts  []s3types.Option
		check func(*testing.T, aws.Config, bool, *string, aws.HTTPClient)
	}{
		{
			name: "explicit region",
			opts: []s3types.Option{WithRegion("us-west-2")},
			check: func(t *testing.T, cfg aws.Config, _ bool, _ *string, _ aws.HTTPClient) {
				assert.Equal(t, "us-west-2", cfg.Region)
			},
		},
		{
			name: "endpoint and path style",
			opts: []s3types.Option{
				WithRegion("us-east-1"),
				WithEndpoint("http://localhost:4566"),
				WithForcePathStyle(true),
			},
			check: func(t *testing.T, _ aws.Config, pathStyle bool, endpoint *string, _ aws.HTTPClient) {
				assert.True(t, pathStyle)
				assert.Equal(t, "http://localhost:4566", aws.ToString(endpoint))
			},
		},
		{
			name: "static credentials",
			opts: []s3types.Option{
				WithRegion("eu-west-1"),
				WithCredentials("AKID", "SECRET", "TOKEN"),
			},
			check: func(t *testing.T, cfg aws.Config, _ bool, _ *string, _ aws.HTTPClient) {
				creds, err := cfg.Credentials.Retrieve(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "AKID", creds.AccessKeyID)
				assert.Equal(t, "SECRET", creds.SecretAccessKey)
				assert.Equal(t, "TOKEN", creds.SessionToken)
			},
		},
		{
			name: "credentials provider",
			opts: []s3types.Option{
				WithRegion("eu-west-1"),
				WithCredentialsProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
					return aws.Credentials{AccessKeyID: "FROM-SECRET", SecretAccessKey: "S"}, nil
				})),
			},
			check: func(t *testing.T, cfg aws.Config, _ bool, _ *string, _ aws.HTTPClient) {
				creds, err := cfg.Credentials.Retrieve(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "FROM-SECRET", creds.AccessKeyID)
			},
		},
		{
			name: "retries",
			opts: []s3types.Option{WithRegion("us-east-1"), WithMaxRetries(7)},
			check: func(t *testing.T, cfg aws.Config, _ bool, _ *string, _ aws.HTTPClient) {
				require.NotNil(t, cfg.Retryer)
				assert.Equal(t, 7, cfg.Retryer().MaxAttempts())
			},
		},
		{
			name: "custom http client wins over timeout",
			opts: []s3types.Option{
				WithRegion("us-east-1"),
				WithTimeout(time.Second),
				WithCustomHTTPClient(&http.Client{Timeout: time.Minute}),
			},
			check: func(t *testing.T, _ aws.Config, _ bool, _ *string, hc aws.HTTPClient) {
				c, ok := hc.(*http.Client)
				require.True(t, ok)
				assert.Equal(t, time.Minute, c.Timeout)
			},
		},
		{
			name: "custom aws config",
			opts: []s3types.Option{WithAWSConfig(&aws.Config{})},
			check: func(t *testing.T, cfg aws.Config, _ bool, _ *string, _ aws.HTTPClient) {
				assert.Equal(t, DefaultRegion, cfg.Region)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewS3Client(context.Background(), tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, client)

			o := client.Options()
			cfg := aws.Config{
				Region:      o.Region,
				Credentials: o.Credentials,
			}
			if o.Retryer != nil {
				retryer := o.Retryer
				cfg.Retryer = func() aws.Retryer { return retryer }
			}
			tt.check(t, cfg, o.UsePathStyle, o.BaseEndpoint, o.HTTPClient)
		})
	}
}

func TestNew_ReturnsStorage(t *testing.T) {
	store, err := New(context.Background(), WithRegion("us-east-1"))
	require.NoError(t, err)
	require.NotNil(t, store)

	var _ Storage = store
}
