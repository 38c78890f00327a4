package testutil

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// FakeS3 is an in-process S3 endpoint backed by memory.
type FakeS3 struct {
	Server *httptest.Server
	Client *s3.Client
}

// NewFakeS3 starts an in-process S3 server with the given buckets created and
// returns an SDK client pointed at it. The server is closed on test cleanup.
func NewFakeS3(t *testing.T, buckets ...string) *FakeS3 {
	t.Helper()

	backend := s3mem.New()
	for _, b := range buckets {
		if err := backend.CreateBucket(b); err != nil {
			t.Fatalf("create bucket %s: %v", b, err)
		}
	}

	server := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(server.Close)

	cfg := aws.Config{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("test", "test", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(server.URL)
	})

	return &FakeS3{Server: server, Client: client}
}

// PutObject writes body under bucket/key with optional user metadata.
func (f *FakeS3) PutObject(t *testing.T, bucket, key string, body []byte, metadata map[string]string) {
	t.Helper()

	_, err := f.Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/plain"),
		Metadata:      metadata,
	})
	if err != nil {
		t.Fatalf("put %s/%s: %v", bucket, key, err)
	}
}
