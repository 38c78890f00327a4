// Package copy rewrites an object onto itself under a new server-side
// encryption envelope.
//
// Objects up to the single-request copy limit use CopyObject with the COPY
// metadata directive. Larger objects use a multipart copy whose parts are
// copied one at a time; metadata and content headers are carried over from
// the snapshot because multipart uploads cannot copy them.
//
// No ACL is ever sent with the rewrite. Callers restore the ACL snapshot
// afterwards.
package copy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

const (
	// MaxSimpleCopySize is the largest object CopyObject accepts (5 GiB).
	MaxSimpleCopySize int64 = 5 * 1024 * 1024 * 1024

	// DefaultPartSize is the multipart copy part size.
	DefaultPartSize int64 = 512 * 1024 * 1024

	maxParts = 10000
)

// Copier performs in-place encrypting copies.
type Copier struct {
	s3Client s3api.S3API
	partSize int64
}

// NewCopier creates a new copy operation handler.
func NewCopier(s3Client s3api.S3API) *Copier {
	return &Copier{
		s3Client: s3Client,
		partSize: DefaultPartSize,
	}
}

// WithPartSize overrides the multipart part size.
func (c *Copier) WithPartSize(size int64) *Copier {
	if size > 0 {
		c.partSize = size
	}
	return c
}

// EncryptCopy rewrites bucket/key onto itself requesting sse. meta is the
// snapshot taken before the rewrite and selects the copy strategy.
func (c *Copier) EncryptCopy(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	if meta == nil || sse == nil {
		return errors.NewObjectError("encryptCopy", bucket, key, errors.ErrInvalidInput).
			WithMessage("metadata snapshot and encryption target are required")
	}

	if meta.ContentLength > MaxSimpleCopySize {
		return c.multipartCopy(ctx, bucket, key, meta, sse)
	}

	return c.simpleCopy(ctx, bucket, key, meta, sse)
}

// copySource builds the URL-escaped CopySource header value.
func copySource(bucket, key string) string {
	return url.PathEscape(bucket + "/" + key)
}

// simpleCopy performs the rewrite with a single CopyObject call.
func (c *Copier) simpleCopy(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	input := &s3.CopyObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(bucket, key)),
		MetadataDirective: awstypes.MetadataDirectiveCopy,
	}

	if meta.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(meta.StorageClass)
	}
	if meta.ETag != "" {
		input.CopySourceIfMatch = aws.String(meta.ETag)
	}
	if meta.WebsiteRedirectLocation != "" {
		input.WebsiteRedirectLocation = aws.String(meta.WebsiteRedirectLocation)
	}

	applySSEOptionsToCopy(input, sse)

	if _, err := c.s3Client.CopyObject(ctx, input); err != nil {
		return errors.NewObjectError("copyObject", bucket, key, err)
	}

	return nil
}

// applySSEOptionsToCopy applies server-side encryption options to CopyObjectInput.
func applySSEOptionsToCopy(input *s3.CopyObjectInput, sse *s3types.SSEConfig) {
	input.ServerSideEncryption = awstypes.ServerSideEncryption(sse.Type)
	if sse.KMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(sse.KMSKeyID)
	}
}

// applySSEOptionsToMultipart applies server-side encryption options to CreateMultipartUploadInput.
func applySSEOptionsToMultipart(input *s3.CreateMultipartUploadInput, sse *s3types.SSEConfig) {
	input.ServerSideEncryption = awstypes.ServerSideEncryption(sse.Type)
	if sse.KMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(sse.KMSKeyID)
	}
}

// multipartCopy rewrites objects larger than MaxSimpleCopySize.
func (c *Copier) multipartCopy(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	partSize := c.getPartSize(meta.ContentLength)
	numParts := calculateParts(meta.ContentLength, partSize)

	tagging, err := c.getTagging(ctx, bucket, key)
	if err != nil {
		return err
	}

	uploadID, err := c.createMultipartUpload(ctx, bucket, key, meta, sse, tagging)
	if err != nil {
		return err
	}

	parts := make([]awstypes.CompletedPart, 0, numParts)
	for i := 0; i < numParts; i++ {
		partNumber := int32(i + 1)
		etag, err := c.copyPart(ctx, bucket, key, uploadID, meta, partSize, partNumber)
		if err != nil {
			c.abortMultipartUpload(ctx, bucket, key, uploadID)
			return err
		}
		parts = append(parts, awstypes.CompletedPart{
			ETag:       aws.String(etag),
			PartNumber: aws.Int32(partNumber),
		})
	}

	if err := c.completeMultipartUpload(ctx, bucket, key, uploadID, parts); err != nil {
		c.abortMultipartUpload(ctx, bucket, key, uploadID)
		return err
	}

	return nil
}

// getPartSize grows the configured part size until the object fits in
// maxParts parts.
func (c *Copier) getPartSize(objectSize int64) int64 {
	partSize := c.partSize
	for calculateParts(objectSize, partSize) > maxParts {
		partSize *= 2
	}
	return partSize
}

// calculateParts calculates the number of parts needed.
func calculateParts(size, partSize int64) int {
	if size == 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}

// getTagging returns the object's tag set encoded as a Tagging header value,
// or empty when the object has no tags.
func (c *Copier) getTagging(ctx context.Context, bucket, key string) (string, error) {
	output, err := c.s3Client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", errors.NewObjectError("getObjectTagging", bucket, key, err)
	}

	tags := url.Values{}
	for _, tag := range output.TagSet {
		tags.Add(aws.ToString(tag.Key), aws.ToString(tag.Value))
	}
	return tags.Encode(), nil
}

// createMultipartUpload starts the destination upload carrying the snapshot's
// metadata, content headers, tags and storage class.
func (c *Copier) createMultipartUpload(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
	tagging string,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Metadata: meta.Metadata,
	}

	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.ContentEncoding != "" {
		input.ContentEncoding = aws.String(meta.ContentEncoding)
	}
	if meta.ContentDisposition != "" {
		input.ContentDisposition = aws.String(meta.ContentDisposition)
	}
	if meta.ContentLanguage != "" {
		input.ContentLanguage = aws.String(meta.ContentLanguage)
	}
	if meta.CacheControl != "" {
		input.CacheControl = aws.String(meta.CacheControl)
	}
	if meta.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(meta.StorageClass)
	}
	if !meta.Expires.IsZero() {
		input.Expires = aws.Time(meta.Expires)
	}
	if meta.WebsiteRedirectLocation != "" {
		input.WebsiteRedirectLocation = aws.String(meta.WebsiteRedirectLocation)
	}
	if tagging != "" {
		input.Tagging = aws.String(tagging)
	}

	applySSEOptionsToMultipart(input, sse)

	output, err := c.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("createMultipartUpload", bucket, key, err)
	}

	return aws.ToString(output.UploadId), nil
}

// copyPart copies a single byte range of the source into the upload.
func (c *Copier) copyPart(
	ctx context.Context,
	bucket, key, uploadID string,
	meta *s3types.ObjectMetadata,
	partSize int64,
	partNumber int32,
) (string, error) {
	offset := int64(partNumber-1) * partSize
	size := partSize
	if offset+size > meta.ContentLength {
		size = meta.ContentLength - offset
	}

	input := &s3.UploadPartCopyInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		CopySource:      aws.String(copySource(bucket, key)),
		CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+size-1)),
		PartNumber:      aws.Int32(partNumber),
		UploadId:        aws.String(uploadID),
	}
	if meta.ETag != "" {
		input.CopySourceIfMatch = aws.String(meta.ETag)
	}

	output, err := c.s3Client.UploadPartCopy(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("uploadPartCopy", bucket, key, err).
			WithMessage(fmt.Sprintf("part %d", partNumber))
	}

	if output.CopyPartResult == nil {
		return "", errors.NewObjectError("uploadPartCopy", bucket, key, errors.ErrInvalidInput).
			WithKind(errors.KindUnknown).
			WithMessage(fmt.Sprintf("part %d: missing copy result", partNumber))
	}

	return aws.ToString(output.CopyPartResult.ETag), nil
}

// completeMultipartUpload completes the multipart upload.
func (c *Copier) completeMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []awstypes.CompletedPart,
) error {
	_, err := c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return errors.NewObjectError("completeMultipartUpload", bucket, key, err)
	}
	return nil
}

// abortMultipartUpload aborts the upload. Its error is dropped in favour of
// the copy failure.
func (c *Copier) abortMultipartUpload(ctx context.Context, bucket, key, uploadID string) {
	_, _ = c.s3Client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}
