// Package validation provides centralized input validation logic.
// This includes bucket name validation, object key validation and run
// parameter checks.
//
// All inputs are validated before any storage call is made.
package validation

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// MaxPageSize is the largest page ListObjectsV2 returns.
const MaxPageSize = 1000

// ValidateBucketName validates that a bucket name follows the S3 naming rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}

	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}

	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates that an object key can be addressed.
// Keys listed from a bucket are accepted verbatim; only the S3 limits are
// enforced so existing objects with unusual names are never rejected.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot be empty")
	}

	// S3 supports up to 1024 bytes
	if len(key) > 1024 {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 bytes")
	}

	return nil
}

// ValidatePageSize validates a listing page size.
func ValidatePageSize(pageSize int32) error {
	if pageSize < 1 || pageSize > MaxPageSize {
		return errors.NewError("validatePageSize", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize))
	}
	return nil
}

// ValidateMaxObjects validates the processing cap. Zero means unlimited.
func ValidateMaxObjects(maxObjects int) error {
	if maxObjects < 0 {
		return errors.NewError("validateMaxObjects", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("max objects cannot be negative, got %d", maxObjects))
	}
	return nil
}

// ValidateSSE validates the target encryption scheme.
func ValidateSSE(sse s3types.SSEConfig) error {
	switch sse.Type {
	case s3types.SSES3:
		if sse.KMSKeyID != "" {
			return errors.NewError("validateSSE", errors.ErrInvalidConfig).
				WithMessage("a KMS key id requires the aws:kms encryption type")
		}
	case s3types.SSEKMS, s3types.SSEKMSDSSE:
	case s3types.SSENone:
		return errors.NewError("validateSSE", errors.ErrInvalidConfig).
			WithMessage("target encryption type cannot be empty")
	default:
		return errors.NewError("validateSSE", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("unsupported encryption type %q", sse.Type))
	}
	return nil
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithKind(errors.KindInvalidConfig).
			WithMessage("bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithKind(errors.KindInvalidConfig).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithKind(errors.KindInvalidConfig).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) error {
	first, last := bucket[0], bucket[len(bucket)-1]
	if !isAlnum(rune(first)) || !isAlnum(rune(last)) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithKind(errors.KindInvalidConfig).
			WithBucket(bucket).
			WithMessage("bucket name must begin and end with a letter or number")
	}

	if hasAdjacentPeriods(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithKind(errors.KindInvalidConfig).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods")
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return isAlnum(char) || char == '.' || char == '-'
}

func isAlnum(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z')
}

func hasAdjacentPeriods(bucket string) bool {
	for i := 0; i < len(bucket)-1; i++ {
		if bucket[i] == '.' && bucket[i+1] == '.' {
			return true
		}
	}
	return false
}
