// Package s3types provides shared type definitions for the s3encrypt module.
package s3types

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// SSEType represents the server-side encryption indicator reported for objects.
type SSEType string

// Predefined server-side encryption types
const (
	// SSENone means the object reports no server-side encryption
	SSENone SSEType = ""

	// SSES3 uses S3-managed encryption keys
	SSES3 SSEType = "AES256"

	// SSEKMS uses AWS KMS-managed encryption keys
	SSEKMS SSEType = "aws:kms"

	// SSEKMSDSSE uses dual-layer KMS encryption
	SSEKMSDSSE SSEType = "aws:kms:dsse"
)

// SSEConfig describes the target encryption scheme for the rewrite.
type SSEConfig struct {
	// Type is the encryption type requested on copy
	Type SSEType

	// KMSKeyID is the KMS key ID (optional, only for SSE-KMS)
	KMSKeyID string
}

// Outcome is the per-object result of a remediation attempt.
type Outcome string

const (
	// OutcomeSkipped means the object already carried the target encryption
	OutcomeSkipped Outcome = "skipped"

	// OutcomeRemediated means the object needed remediation and it was
	// rewritten, or would have been under dry run
	OutcomeRemediated Outcome = "remediated"

	// OutcomeFailed means a storage call failed for this object
	OutcomeFailed Outcome = "failed"
)

// ObjectMetadata is the snapshot of an object read before any mutation.
type ObjectMetadata struct {
	// ServerSideEncryption is the current encryption indicator (empty when unset)
	ServerSideEncryption SSEType

	// SSEKMSKeyID is the KMS key protecting the object, if any
	SSEKMSKeyID string

	// Metadata contains user-defined metadata
	Metadata map[string]string

	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// ContentEncoding, ContentDisposition, ContentLanguage and CacheControl are
	// carried forward explicitly by multipart rewrites
	ContentEncoding    string
	ContentDisposition string
	ContentLanguage    string
	CacheControl       string

	// Expires is the cache expiry header; zero when unset
	Expires time.Time

	// WebsiteRedirectLocation is not carried by a COPY directive and is
	// always sent explicitly
	WebsiteRedirectLocation string

	// ETag is the S3 entity tag for the object
	ETag string

	// LastModified is when the object was last modified
	LastModified time.Time

	// StorageClass is the S3 storage class
	StorageClass string
}

// Owner identifies the canonical owner of an object.
type Owner struct {
	ID          string
	DisplayName string
}

// GranteeType mirrors the S3 grantee type.
type GranteeType string

// Grantee types
const (
	GranteeCanonicalUser         GranteeType = "CanonicalUser"
	GranteeAmazonCustomerByEmail GranteeType = "AmazonCustomerByEmail"
	GranteeGroup                 GranteeType = "Group"
)

// Grantee is the principal of a grant.
type Grantee struct {
	Type         GranteeType
	ID           string
	DisplayName  string
	EmailAddress string
	URI          string
}

// Grant is one (principal, permission) access-control entry.
type Grant struct {
	Grantee    Grantee
	Permission string
}

// ACL is the access-control snapshot of an object: its owner and ordered grants.
type ACL struct {
	Owner  *Owner
	Grants []Grant
}

// Clone returns a deep copy of the ACL.
func (a *ACL) Clone() *ACL {
	if a == nil {
		return nil
	}
	out := &ACL{}
	if a.Owner != nil {
		owner := *a.Owner
		out.Owner = &owner
	}
	if a.Grants != nil {
		out.Grants = make([]Grant, len(a.Grants))
		copy(out.Grants, a.Grants)
	}
	return out
}

// ListInput is one listing request. When ContinuationToken is set it takes
// precedence over StartAfter.
type ListInput struct {
	Bucket            string
	PageSize          int32
	StartAfter        string
	ContinuationToken string
}

// ListPage is one page of object keys in lexicographic order.
type ListPage struct {
	// Keys are the object keys in listing order
	Keys []string

	// NextContinuationToken is empty when the bucket is exhausted
	NextContinuationToken string
}

// RemediationResult is the outcome of processing a single object.
type RemediationResult struct {
	Bucket string
	Key    string

	// Outcome classifies what happened to the object
	Outcome Outcome

	// Rewritten is true only when the encrypting copy was actually issued
	Rewritten bool

	// DryRun records whether the run was a dry run
	DryRun bool

	// PreviousSSE is the indicator observed before remediation
	PreviousSSE SSEType

	// Size is the object size in bytes, when known
	Size int64

	// Err is set when Outcome is OutcomeFailed
	Err error

	// Duration is how long the object took to process
	Duration time.Duration
}

// Reporter receives exactly one outcome per examined object.
// Implementations are called sequentially.
type Reporter interface {
	Report(ctx context.Context, result *RemediationResult)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, result *RemediationResult)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, result *RemediationResult) {
	f(ctx, result)
}

// Configuration types for functional options

// ClientConfig holds configuration for the S3 client built by the bootstrap layer.
type ClientConfig struct {
	Region          string
	Endpoint        string
	MaxRetries      int
	Timeout         time.Duration
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config
	// AccessKeyID, SecretAccessKey and SessionToken select explicit
	// credentials; when both key fields are empty the default chain is used
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// CredentialsProvider supplies credentials from another source; it is
	// ignored when explicit keys are set
	CredentialsProvider aws.CredentialsProvider
	CustomHTTPClient    *http.Client
}

// EncrypterConfig holds configuration for the Encrypter.
type EncrypterConfig struct {
	Logger   *slog.Logger
	Reporter Reporter
	SSE      SSEConfig
	RunID    string
}

type (
	// Option is a functional option for configuring the S3 client.
	Option func(*ClientConfig)
	// EncrypterOption is a functional option for configuring the Encrypter.
	EncrypterOption func(*EncrypterConfig)
)
