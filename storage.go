package s3encrypt

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/operations/acl"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/operations/copy"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/operations/head"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// Storage is the object store the Encrypter works against.
// Calls are made sequentially; implementations need not be safe for
// concurrent use by a single Encrypter.
type Storage interface {
	// ListObjects returns one page of keys in lexicographic order.
	ListObjects(ctx context.Context, in *s3types.ListInput) (*s3types.ListPage, error)

	// HeadObject returns the metadata snapshot of an object. A missing object
	// yields an error of kind not_found.
	HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectMetadata, error)

	// GetObjectACL returns the owner and ordered grants of an object.
	GetObjectACL(ctx context.Context, bucket, key string) (*s3types.ACL, error)

	// EncryptCopy rewrites an object onto itself under sse, carrying its
	// metadata forward. It must not send an ACL.
	EncryptCopy(ctx context.Context, bucket, key string, meta *s3types.ObjectMetadata, sse *s3types.SSEConfig) error

	// PutObjectACL replaces the ACL of an object with acl.
	PutObjectACL(ctx context.Context, bucket, key string, acl *s3types.ACL) error
}

// S3Storage implements Storage on top of the AWS SDK.
type S3Storage struct {
	lister *list.Lister
	reader *head.Reader
	acls   *acl.Manager
	copier *copy.Copier
}

// NewS3Storage creates a Storage over an S3 API implementation.
// This is primarily used with a pre-built *s3.Client or a mock.
func NewS3Storage(client s3api.S3API) *S3Storage {
	return &S3Storage{
		lister: list.New(client),
		reader: head.New(client),
		acls:   acl.New(client),
		copier: copy.NewCopier(client),
	}
}

// ListObjects implements Storage.
func (s *S3Storage) ListObjects(ctx context.Context, in *s3types.ListInput) (*s3types.ListPage, error) {
	return s.lister.List(ctx, in)
}

// HeadObject implements Storage.
func (s *S3Storage) HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectMetadata, error) {
	return s.reader.Head(ctx, bucket, key)
}

// GetObjectACL implements Storage.
func (s *S3Storage) GetObjectACL(ctx context.Context, bucket, key string) (*s3types.ACL, error) {
	return s.acls.Get(ctx, bucket, key)
}

// EncryptCopy implements Storage.
func (s *S3Storage) EncryptCopy(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	return s.copier.EncryptCopy(ctx, bucket, key, meta, sse)
}

// PutObjectACL implements Storage.
func (s *S3Storage) PutObjectACL(ctx context.Context, bucket, key string, acl *s3types.ACL) error {
	return s.acls.Put(ctx, bucket, key, acl)
}

var _ Storage = (*S3Storage)(nil)
