//go:build integration

package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localStackImage  = "localstack/localstack:latest"
	localStackRegion = "us-east-1"
	localStackPort   = "4566/tcp"
)

// LocalStack is a running LocalStack container serving S3 and Secrets Manager.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string
}

// StartLocalStack starts a container for t and terminates it when t ends.
// The test is skipped in short mode.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx, localStackImage,
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3,secretsmanager"}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort(localStackPort).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate LocalStack container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, localStackPort, "http")
	if err != nil {
		t.Fatalf("Failed to resolve LocalStack endpoint: %v", err)
	}

	return &LocalStack{container: container, endpoint: endpoint}
}

// Endpoint returns the LocalStack endpoint URL.
func (l *LocalStack) Endpoint() string {
	return l.endpoint
}

// Region returns the AWS region used by LocalStack.
func (l *LocalStack) Region() string {
	return localStackRegion
}

// SecretsManager returns a Secrets Manager client for the container.
func (l *LocalStack) SecretsManager() *secretsmanager.Client {
	return secretsmanager.New(secretsmanager.Options{
		Region:       localStackRegion,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(staticTestCredentials)),
		BaseEndpoint: aws.String(l.endpoint),
	})
}

func staticTestCredentials(context.Context) (aws.Credentials, error) {
	return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
}

// NewBucket creates a uniquely named bucket and removes it, with its
// contents, when t ends.
func NewBucket(t *testing.T, client *s3.Client, prefix string) string {
	t.Helper()

	ctx := context.Background()
	bucket := GenerateTestBucketName(prefix)
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", bucket, err)
	}
	t.Cleanup(func() {
		if err := deleteBucket(context.Background(), client, bucket); err != nil {
			t.Logf("Failed to delete bucket %s: %v", bucket, err)
		}
	})
	return bucket
}

func deleteBucket(ctx context.Context, client *s3.Client, bucket string) error {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	var errs []error
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list %s: %w", bucket, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids},
		}); err != nil {
			errs = append(errs, fmt.Errorf("delete objects in %s: %w", bucket, err))
		}
	}

	if _, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		errs = append(errs, fmt.Errorf("delete bucket %s: %w", bucket, err))
	}
	return errors.Join(errs...)
}
