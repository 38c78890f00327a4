package s3encrypt

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// RemediateObject brings a single object under the target encryption without
// listing the bucket. Every failure, including invalid input, is captured in
// the returned result; the outcome is also sent to the configured reporter.
func (e *Encrypter) RemediateObject(ctx context.Context, bucket, key string, dryRun bool) *s3types.RemediationResult {
	if err := validateObjectTarget(bucket, key); err != nil {
		result := &s3types.RemediationResult{
			Bucket:  bucket,
			Key:     key,
			DryRun:  dryRun,
			Outcome: s3types.OutcomeFailed,
			Err:     err,
		}
		e.log(ctx, result)
		e.reporter.Report(ctx, result)
		return result
	}

	return e.process(ctx, bucket, key, dryRun)
}

func validateObjectTarget(bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return errors.NewError("remediateObject", err).WithBucket(bucket)
	}
	return nil
}
