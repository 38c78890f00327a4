// Package head reads object metadata without fetching object bodies.
package head

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	HeadObject(
		ctx context.Context,
		input *s3.HeadObjectInput,
		opts ...func(*s3.Options),
	) (*s3.HeadObjectOutput, error)
}

// Reader fetches object metadata.
type Reader struct {
	client S3Interface
}

// New creates a new Reader.
func New(client S3Interface) *Reader {
	return &Reader{client: client}
}

// Head returns the metadata snapshot of bucket/key.
// A missing object yields an error of kind not_found.
func (r *Reader) Head(ctx context.Context, bucket, key string) (*s3types.ObjectMetadata, error) {
	output, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("headObject", bucket, key, err)
	}

	return convertOutput(output), nil
}

func convertOutput(output *s3.HeadObjectOutput) *s3types.ObjectMetadata {
	meta := &s3types.ObjectMetadata{
		ServerSideEncryption: s3types.SSEType(output.ServerSideEncryption),
		SSEKMSKeyID:          aws.ToString(output.SSEKMSKeyId),
		ContentType:          aws.ToString(output.ContentType),
		ContentLength:        aws.ToInt64(output.ContentLength),
		ContentEncoding:      aws.ToString(output.ContentEncoding),
		ContentDisposition:   aws.ToString(output.ContentDisposition),
		ContentLanguage:      aws.ToString(output.ContentLanguage),
		CacheControl:         aws.ToString(output.CacheControl),
		ETag:                 aws.ToString(output.ETag),
		LastModified:         aws.ToTime(output.LastModified),
		StorageClass:         string(output.StorageClass),
		//nolint:staticcheck // the parsed form is what CreateMultipartUpload accepts
		Expires:                 aws.ToTime(output.Expires),
		WebsiteRedirectLocation: aws.ToString(output.WebsiteRedirectLocation),
	}

	if len(output.Metadata) > 0 {
		meta.Metadata = make(map[string]string, len(output.Metadata))
		for k, v := range output.Metadata {
			meta.Metadata[k] = v
		}
	}

	return meta
}
