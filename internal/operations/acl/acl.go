// Package acl reads and restores object access-control lists.
//
// A snapshot taken with Get can be written back verbatim with Put; owner and
// grant order are preserved.
package acl

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	GetObjectAcl(
		ctx context.Context,
		input *s3.GetObjectAclInput,
		opts ...func(*s3.Options),
	) (*s3.GetObjectAclOutput, error)
	PutObjectAcl(
		ctx context.Context,
		input *s3.PutObjectAclInput,
		opts ...func(*s3.Options),
	) (*s3.PutObjectAclOutput, error)
}

// Manager snapshots and restores ACLs.
type Manager struct {
	client S3Interface
}

// New creates a new Manager.
func New(client S3Interface) *Manager {
	return &Manager{client: client}
}

// Get returns the ACL snapshot of bucket/key.
func (m *Manager) Get(ctx context.Context, bucket, key string) (*s3types.ACL, error) {
	output, err := m.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("getObjectAcl", bucket, key, err)
	}

	return fromAWS(output.Owner, output.Grants), nil
}

// Put replaces the ACL of bucket/key with acl.
func (m *Manager) Put(ctx context.Context, bucket, key string, acl *s3types.ACL) error {
	if acl == nil {
		return errors.NewObjectError("putObjectAcl", bucket, key, errors.ErrInvalidInput).
			WithMessage("acl snapshot is required")
	}

	_, err := m.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		AccessControlPolicy: toAWS(acl),
	})
	if err != nil {
		return errors.NewObjectError("putObjectAcl", bucket, key, err)
	}

	return nil
}

func fromAWS(owner *awstypes.Owner, grants []awstypes.Grant) *s3types.ACL {
	out := &s3types.ACL{
		Grants: make([]s3types.Grant, 0, len(grants)),
	}

	if owner != nil {
		out.Owner = &s3types.Owner{
			ID:          aws.ToString(owner.ID),
			DisplayName: aws.ToString(owner.DisplayName),
		}
	}

	for _, g := range grants {
		grant := s3types.Grant{Permission: string(g.Permission)}
		if g.Grantee != nil {
			grant.Grantee = s3types.Grantee{
				Type:         s3types.GranteeType(g.Grantee.Type),
				ID:           aws.ToString(g.Grantee.ID),
				DisplayName:  aws.ToString(g.Grantee.DisplayName),
				EmailAddress: aws.ToString(g.Grantee.EmailAddress),
				URI:          aws.ToString(g.Grantee.URI),
			}
		}
		out.Grants = append(out.Grants, grant)
	}

	return out
}

func toAWS(acl *s3types.ACL) *awstypes.AccessControlPolicy {
	policy := &awstypes.AccessControlPolicy{
		Grants: make([]awstypes.Grant, 0, len(acl.Grants)),
	}

	if acl.Owner != nil {
		policy.Owner = &awstypes.Owner{
			ID:          optional(acl.Owner.ID),
			DisplayName: optional(acl.Owner.DisplayName),
		}
	}

	for _, g := range acl.Grants {
		policy.Grants = append(policy.Grants, awstypes.Grant{
			Permission: awstypes.Permission(g.Permission),
			Grantee: &awstypes.Grantee{
				Type:         awstypes.Type(g.Grantee.Type),
				ID:           optional(g.Grantee.ID),
				DisplayName:  optional(g.Grantee.DisplayName),
				EmailAddress: optional(g.Grantee.EmailAddress),
				URI:          optional(g.Grantee.URI),
			},
		})
	}

	return policy
}

// optional keeps empty fields out of the request body.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
