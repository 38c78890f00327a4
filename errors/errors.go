// Package errors provides error types and classification for bucket encryption
// remediation.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Error represents a failed operation against a bucket or object.
// It wraps the underlying AWS SDK error with the operation, location and kind.
type Error struct {
	// Op is the operation that failed (e.g., "head", "copy", "list")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Kind classifies the failure
	Kind Kind

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3encrypt.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3encrypt.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3encrypt.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3encrypt.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithKind overrides the classified kind.
func (e *Error) WithKind(kind Kind) *Error {
	e.Kind = kind
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
// The kind is derived from err.
func NewError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: Classify(err),
		Err:  err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Kind:   Classify(err),
		Err:    err,
	}
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3encrypt: object not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3encrypt: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3encrypt: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3encrypt: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3encrypt: invalid object key")

	// ErrInvalidConfig indicates that run parameters are invalid
	ErrInvalidConfig = errors.New("s3encrypt: invalid configuration")

	// ErrListFailed indicates that a listing request failed
	ErrListFailed = errors.New("s3encrypt: list objects failed")
)

// Classify derives a Kind from an arbitrary error.
// Already classified errors keep their kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}

	switch {
	case errors.Is(err, ErrObjectNotFound):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrListFailed):
		return KindPagination
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidBucketName),
		errors.Is(err, ErrInvalidObjectKey):
		return KindInvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return KindNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return KindNotFound
		case "AccessDenied", "Forbidden", "AllAccessDisabled":
			return KindAccessDenied
		case "InternalError", "ServiceUnavailable", "SlowDown", "RequestTimeout", "Throttling":
			return KindTransient
		}
	}

	var httpErr *smithyhttp.ResponseError
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusForbidden:
			return KindAccessDenied
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return KindTransient
		}
	}

	return KindUnknown
}

// KindOf returns the kind of err, or KindUnknown when err is nil.
func KindOf(err error) Kind {
	return Classify(err)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return err != nil && Classify(err) == KindNotFound
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return err != nil && Classify(err) == KindAccessDenied
}

// IsInvalidInput checks if an error indicates invalid input or configuration.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	k := Classify(err)
	return k == KindInvalidInput || k == KindInvalidConfig
}

// IsPagination checks if an error came from a failed listing call.
func IsPagination(err error) bool {
	return err != nil && Classify(err) == KindPagination
}
