package s3encrypt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

func TestBucketConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BucketConfig
		wantErr bool
	}{
		{"minimal", BucketConfig{Bucket: testBucket}, false},
		{"full", BucketConfig{Bucket: testBucket, PageSize: 1000, StartAfter: "k", MaxObjects: 3, DryRun: true}, false},
		{"empty bucket", BucketConfig{}, true},
		{"bad bucket", BucketConfig{Bucket: "Bad_Bucket"}, true},
		{"negative page size", BucketConfig{Bucket: testBucket, PageSize: -1}, true},
		{"page size too large", BucketConfig{Bucket: testBucket, PageSize: 1001}, true},
		{"negative cap", BucketConfig{Bucket: testBucket, MaxObjects: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, s3errors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRemediateBucket_InvalidConfigMakesNoCalls(t *testing.T) {
	store := testutil.NewMemStorage()
	enc := newTestEncrypter(t, store)

	res, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket, MaxObjects: -5})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, store.Calls())
}

func TestRemediateBucket_ThreeObjectsTwoEncrypted(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 3, 2)
	before, _ := store.Get(testBucket, "file_3.txt")

	enc := newTestEncrypter(t, store)
	res, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Examined)
	assert.Equal(t, 2, res.AlreadyEncrypted)
	assert.Equal(t, 1, res.Remediated)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "file_3.txt", res.LastKey)
	assert.Equal(t, int64(300), res.BytesRemediated)
	assert.NoError(t, res.Err())

	after, _ := store.Get(testBucket, "file_3.txt")
	assert.Equal(t, s3types.SSES3, after.Meta.ServerSideEncryption)
	assert.Equal(t, before.Meta.Metadata, after.Meta.Metadata)
	assert.Equal(t, before.ACL, after.ACL)

	assert.Equal(t, 1, store.CountOp(testutil.OpCopy))
	assert.Equal(t, 1, store.CountOp(testutil.OpPutACL))
}

func TestRemediateBucket_Idempotent(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 4, 1)
	enc := newTestEncrypter(t, store)

	first, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Remediated)

	store.ResetCalls()
	second, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket})
	require.NoError(t, err)

	assert.Equal(t, 4, second.Examined)
	assert.Equal(t, 4, second.AlreadyEncrypted)
	assert.Equal(t, 0, second.Remediated)
	assert.Zero(t, store.CountOp(testutil.OpCopy))
	assert.Zero(t, store.CountOp(testutil.OpPutACL))
}

func TestRemediateBucket_CapOnFiveObjects(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 5, 0)
	enc := newTestEncrypter(t, store)

	res, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket, MaxObjects: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Examined)
	assert.Equal(t, "file_1.txt", res.LastKey)
	assert.Equal(t, 1, store.CountOp(testutil.OpHead))
}

func TestRemediateBucket_ResumeEqualsFullPass(t *testing.T) {
	full := testutil.NewMemStorage()
	testutil.SeedBucket(full, testBucket, 7, 2)
	fullRes, err := newTestEncrypter(t, full).RemediateBucket(context.Background(),
		BucketConfig{Bucket: testBucket, PageSize: 2})
	require.NoError(t, err)

	resumed := testutil.NewMemStorage()
	testutil.SeedBucket(resumed, testBucket, 7, 2)
	enc := newTestEncrypter(t, resumed)

	var examinedOrder []string
	total := &BucketResult{}
	startAfter := ""
	for i := 0; i < 10; i++ {
		res, err := enc.RemediateBucket(context.Background(),
			BucketConfig{Bucket: testBucket, PageSize: 2, MaxObjects: 3, StartAfter: startAfter})
		require.NoError(t, err)
		if res.Examined == 0 {
			break
		}
		total.Examined += res.Examined
		total.AlreadyEncrypted += res.AlreadyEncrypted
		total.Remediated += res.Remediated
		startAfter = res.LastKey
		examinedOrder = append(examinedOrder, res.LastKey)
	}

	assert.Equal(t, fullRes.Examined, total.Examined)
	assert.Equal(t, fullRes.AlreadyEncrypted, total.AlreadyEncrypted)
	assert.Equal(t, fullRes.Remediated, total.Remediated)
	assert.Equal(t, fullRes.LastKey, startAfter)
	assert.Equal(t, []string{"file_3.txt", "file_6.txt", "file_7.txt"}, examinedOrder)

	var heads []string
	for _, c := range resumed.Calls() {
		if c.Op == testutil.OpHead {
			heads = append(heads, c.Key)
		}
	}
	var fullHeads []string
	for _, c := range full.Calls() {
		if c.Op == testutil.OpHead {
			fullHeads = append(fullHeads, c.Key)
		}
	}
	assert.Equal(t, fullHeads, heads)
}

func TestRemediateBucket_FaultIsolation(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 4, 0)
	store.FailOn(testutil.OpHead, "file_2.txt", errors.New("head exploded"))
	store.FailOn(testutil.OpCopy, "file_3.txt", errors.New("copy exploded"))

	var reported []s3types.Outcome
	enc := newTestEncrypter(t, store, WithReporter(s3types.ReporterFunc(
		func(_ context.Context, r *s3types.RemediationResult) {
			reported = append(reported, r.Outcome)
		})))

	res, err := enc.RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Examined)
	assert.Equal(t, 2, res.Remediated)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, "file_4.txt", res.LastKey)
	assert.Equal(t, []s3types.Outcome{
		s3types.OutcomeRemediated,
		s3types.OutcomeFailed,
		s3types.OutcomeFailed,
		s3types.OutcomeRemediated,
	}, reported)

	require.Error(t, res.Err())
	assert.Len(t, res.Errors(), 2)
	assert.Contains(t, res.Err().Error(), "head exploded")
	assert.Contains(t, res.Err().Error(), "copy exploded")

	obj, _ := store.Get(testBucket, "file_3.txt")
	assert.Equal(t, s3types.SSENone, obj.Meta.ServerSideEncryption)
	assert.Equal(t, testutil.PublicReadACL(), obj.ACL)
}

func TestRemediateBucket_DryRunPurity(t *testing.T) {
	dry := testutil.NewMemStorage()
	testutil.SeedBucket(dry, testBucket, 5, 2)
	live := testutil.NewMemStorage()
	testutil.SeedBucket(live, testBucket, 5, 2)

	var dryOutcomes, realOutcomes []s3types.Outcome
	collect := func(dst *[]s3types.Outcome) s3types.EncrypterOption {
		return WithReporter(s3types.ReporterFunc(func(_ context.Context, r *s3types.RemediationResult) {
			*dst = append(*dst, r.Outcome)
		}))
	}

	dryRes, err := newTestEncrypter(t, dry, collect(&dryOutcomes)).RemediateBucket(context.Background(),
		BucketConfig{Bucket: testBucket, DryRun: true})
	require.NoError(t, err)
	realRes, err := newTestEncrypter(t, live, collect(&realOutcomes)).RemediateBucket(context.Background(),
		BucketConfig{Bucket: testBucket})
	require.NoError(t, err)

	assert.Zero(t, dry.CountOp(testutil.OpCopy))
	assert.Zero(t, dry.CountOp(testutil.OpPutACL))
	assert.Equal(t, 3, dry.CountOp(testutil.OpGetACL))

	assert.Equal(t, realOutcomes, dryOutcomes)
	assert.Equal(t, realRes.Examined, dryRes.Examined)
	assert.Equal(t, realRes.AlreadyEncrypted, dryRes.AlreadyEncrypted)
	assert.Equal(t, realRes.Remediated, dryRes.Remediated)
	assert.Equal(t, realRes.LastKey, dryRes.LastKey)

	for i := 3; i <= 5; i++ {
		obj, _ := dry.Get(testBucket, fmt.Sprintf("file_%d.txt", i))
		assert.Equal(t, s3types.SSENone, obj.Meta.ServerSideEncryption)
	}
}

func TestRemediateBucket_EmptyBucket(t *testing.T) {
	store := testutil.NewMemStorage()
	res, err := newTestEncrypter(t, store).RemediateBucket(context.Background(), BucketConfig{Bucket: testBucket})
	require.NoError(t, err)

	assert.Equal(t, &BucketResult{Pages: 1, Duration: res.Duration}, res)
	assert.Empty(t, res.LastKey)
	assert.NoError(t, res.Err())
}

func TestRemediateBucket_PaginationErrorIsFatal(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 5, 0)
	store.FailListOn(2, errors.New("listing exploded"))

	res, err := newTestEncrypter(t, store).RemediateBucket(context.Background(),
		BucketConfig{Bucket: testBucket, PageSize: 2})
	require.Error(t, err)
	assert.True(t, s3errors.IsPagination(err))
	assert.ErrorIs(t, err, s3errors.ErrListFailed)
	assert.True(t, s3errors.KindOf(err).Fatal())

	require.NotNil(t, res)
	assert.Equal(t, 2, res.Examined)
	assert.Equal(t, "file_2.txt", res.LastKey)
	assert.Equal(t, 2, store.CountOp(testutil.OpList))
}

func TestRemediateBucket_CancelledBetweenObjects(t *testing.T) {
	store := testutil.NewMemStorage()
	testutil.SeedBucket(store, testBucket, 3, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enc := newTestEncrypter(t, store, WithReporter(s3types.ReporterFunc(
		func(context.Context, *s3types.RemediationResult) { cancel() })))

	res, err := enc.RemediateBucket(ctx, BucketConfig{Bucket: testBucket})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Examined)
	assert.Equal(t, "file_1.txt", res.LastKey)
	assert.Equal(t, 1, store.CountOp(testutil.OpPutACL), "in-flight object completes as a unit")
}

// cancelAfterCopy cancels the run as soon as an encrypting copy lands.
type cancelAfterCopy struct {
	*testutil.MemStorage
	cancel context.CancelFunc
}

func (s *cancelAfterCopy) EncryptCopy(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	sse *s3types.SSEConfig,
) error {
	err := s.MemStorage.EncryptCopy(ctx, bucket, key, meta, sse)
	s.cancel()
	return err
}

func TestRemediateBucket_CancelledMidCopyRestoresACL(t *testing.T) {
	mem := testutil.NewMemStorage()
	testutil.SeedBucket(mem, testBucket, 3, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := newTestEncrypter(t, &cancelAfterCopy{MemStorage: mem, cancel: cancel}).
		RemediateBucket(ctx, BucketConfig{Bucket: testBucket})
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, res.Err())
	assert.Equal(t, 1, res.Examined)
	assert.Equal(t, 1, res.Remediated)
	assert.Zero(t, res.Failed)

	first, ok := mem.Get(testBucket, "file_1.txt")
	require.True(t, ok)
	assert.Equal(t, s3types.SSES3, first.Meta.ServerSideEncryption)
	assert.Equal(t, testutil.PublicReadACL(), first.ACL)

	second, ok := mem.Get(testBucket, "file_2.txt")
	require.True(t, ok)
	assert.Empty(t, second.Meta.ServerSideEncryption)
	assert.Equal(t, 1, mem.CountOp(testutil.OpCopy))
}

func TestMemStorage_FailsOnCancelledContext(t *testing.T) {
	mem := testutil.NewMemStorage()
	testutil.SeedBucket(mem, testBucket, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mem.HeadObject(ctx, testBucket, "file_1.txt")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, mem.PutObjectACL(ctx, testBucket, "file_1.txt", testutil.DefaultACL()), context.Canceled)

	obj, _ := mem.Get(testBucket, "file_1.txt")
	assert.Equal(t, testutil.PublicReadACL(), obj.ACL)
}
