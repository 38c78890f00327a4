package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// Storage operation names recorded in the call log.
const (
	OpList   = "list"
	OpHead   = "head"
	OpGetACL = "getAcl"
	OpCopy   = "copy"
	OpPutACL = "putAcl"
)

// Call is one recorded storage call.
type Call struct {
	Op  string
	Key string
}

// MemObject is an object held by MemStorage.
type MemObject struct {
	Meta s3types.ObjectMetadata
	ACL  *s3types.ACL
}

// MemStorage is an in-memory bucket store that behaves like S3 for the
// calls the encrypter makes. An encrypting copy resets the ACL to an
// owner-only grant, as S3 does when no ACL is sent. Like the SDK, every call
// fails once its context is done.
type MemStorage struct {
	mu      sync.Mutex
	buckets map[string]map[string]*MemObject
	calls   []Call
	fail    map[string]error
	listErr map[int]error
	pages   int
}

// NewMemStorage creates an empty store.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		buckets: make(map[string]map[string]*MemObject),
		fail:    make(map[string]error),
		listErr: make(map[int]error),
	}
}

// DefaultACL is the ACL S3 assigns to a freshly written object.
func DefaultACL() *s3types.ACL {
	owner := &s3types.Owner{ID: "owner-id", DisplayName: "owner"}
	return &s3types.ACL{
		Owner: owner,
		Grants: []s3types.Grant{{
			Grantee:    s3types.Grantee{Type: s3types.GranteeCanonicalUser, ID: owner.ID, DisplayName: owner.DisplayName},
			Permission: "FULL_CONTROL",
		}},
	}
}

// PublicReadACL is an owner grant followed by an AllUsers read grant.
func PublicReadACL() *s3types.ACL {
	acl := DefaultACL()
	acl.Grants = append(acl.Grants, s3types.Grant{
		Grantee:    s3types.Grantee{Type: s3types.GranteeGroup, URI: "http://acs.amazonaws.com/groups/global/AllUsers"},
		Permission: "READ",
	})
	return acl
}

// Put stores an object. A nil acl stores DefaultACL.
func (m *MemStorage) Put(bucket, key string, meta s3types.ObjectMetadata, acl *s3types.ACL) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if acl == nil {
		acl = DefaultACL()
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]*MemObject)
		m.buckets[bucket] = objects
	}
	objects[key] = &MemObject{Meta: meta, ACL: acl.Clone()}
}

// Get returns a copy of a stored object.
func (m *MemStorage) Get(bucket, key string) (MemObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.buckets[bucket][key]
	if !ok {
		return MemObject{}, false
	}
	return MemObject{Meta: obj.Meta, ACL: obj.ACL.Clone()}, true
}

// FailOn makes op on key return err.
func (m *MemStorage) FailOn(op, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op+":"+key] = err
}

// FailListOn makes the n-th listing call (1-based) return err.
func (m *MemStorage) FailListOn(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr[n] = err
}

// Calls returns the recorded call log.
func (m *MemStorage) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountOp returns how many times op was called.
func (m *MemStorage) CountOp(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (m *MemStorage) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MemStorage) record(ctx context.Context, op, key string) error {
	m.calls = append(m.calls, Call{Op: op, Key: key})
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.fail[op+":"+key]
}

// ListObjects returns keys in lexicographic order. The continuation token is
// the last key of the previous page.
func (m *MemStorage) ListObjects(ctx context.Context, in *s3types.ListInput) (*s3types.ListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(ctx, OpList, ""); err != nil {
		return nil, err
	}
	m.pages++
	if err, ok := m.listErr[m.pages]; ok {
		return nil, err
	}

	after := in.StartAfter
	if in.ContinuationToken != "" {
		after = in.ContinuationToken
	}

	keys := make([]string, 0, len(m.buckets[in.Bucket]))
	for k := range m.buckets[in.Bucket] {
		if k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	size := int(in.PageSize)
	if size <= 0 {
		size = 1000
	}

	page := &s3types.ListPage{Keys: []string{}}
	if len(keys) > size {
		page.Keys = keys[:size]
		page.NextContinuationToken = keys[size-1]
	} else {
		page.Keys = keys
	}
	return page, nil
}

// HeadObject implements the storage head call.
func (m *MemStorage) HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(ctx, OpHead, key); err != nil {
		return nil, err
	}
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, errors.NewObjectError("headObject", bucket, key, errors.ErrObjectNotFound)
	}
	meta := obj.Meta
	if obj.Meta.Metadata != nil {
		meta.Metadata = make(map[string]string, len(obj.Meta.Metadata))
		for k, v := range obj.Meta.Metadata {
			meta.Metadata[k] = v
		}
	}
	return &meta, nil
}

// GetObjectACL implements the storage ACL read.
func (m *MemStorage) GetObjectACL(ctx context.Context, bucket, key string) (*s3types.ACL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(ctx, OpGetACL, key); err != nil {
		return nil, err
	}
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, errors.NewObjectError("getObjectAcl", bucket, key, errors.ErrObjectNotFound)
	}
	return obj.ACL.Clone(), nil
}

// EncryptCopy sets the encryption indicator, keeps metadata and resets the
// ACL to DefaultACL.
func (m *MemStorage) EncryptCopy(
	ctx context.Context,
	bucket, key string,
	_ *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(ctx, OpCopy, key); err != nil {
		return err
	}
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return errors.NewObjectError("copyObject", bucket, key, errors.ErrObjectNotFound)
	}
	obj.Meta.ServerSideEncryption = sse.Type
	obj.Meta.SSEKMSKeyID = sse.KMSKeyID
	obj.Meta.ETag = fmt.Sprintf(`"%s-reencrypted"`, key)
	obj.ACL = DefaultACL()
	return nil
}

// PutObjectACL implements the storage ACL write.
func (m *MemStorage) PutObjectACL(ctx context.Context, bucket, key string, acl *s3types.ACL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(ctx, OpPutACL, key); err != nil {
		return err
	}
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return errors.NewObjectError("putObjectAcl", bucket, key, errors.ErrObjectNotFound)
	}
	obj.ACL = acl.Clone()
	return nil
}
