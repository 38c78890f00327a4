package list

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

func TestLister_List(t *testing.T) {
	tests := []struct {
		name      string
		input     *s3types.ListInput
		setupMock func(*testutil.MockS3Client)
		wantKeys  []string
		wantToken string
		wantErr   bool
	}{
		{
			name:  "first page uses start after",
			input: &s3types.ListInput{Bucket: "test-bucket", PageSize: 2, StartAfter: "b"},
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					assert.Equal(t, "test-bucket", aws.ToString(params.Bucket))
					assert.Equal(t, "b", aws.ToString(params.StartAfter))
					assert.Nil(t, params.ContinuationToken)
					assert.Equal(t, int32(2), aws.ToInt32(params.MaxKeys))
					return &s3.ListObjectsV2Output{
						Contents:              []types.Object{{Key: aws.String("c")}, {Key: aws.String("d")}},
						IsTruncated:           aws.Bool(true),
						NextContinuationToken: aws.String("tok-1"),
					}, nil
				}
			},
			wantKeys:  []string{"c", "d"},
			wantToken: "tok-1",
		},
		{
			name: "continuation token supersedes start after",
			input: &s3types.ListInput{
				Bucket:            "test-bucket",
				StartAfter:        "b",
				ContinuationToken: "tok-1",
			},
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					assert.Nil(t, params.StartAfter)
					assert.Equal(t, "tok-1", aws.ToString(params.ContinuationToken))
					assert.Equal(t, DefaultPageSize, aws.ToInt32(params.MaxKeys))
					return &s3.ListObjectsV2Output{
						Contents:    []types.Object{{Key: aws.String("e")}},
						IsTruncated: aws.Bool(false),
					}, nil
				}
			},
			wantKeys: []string{"e"},
		},
		{
			name:  "empty bucket",
			input: &s3types.ListInput{Bucket: "test-bucket"},
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					return &s3.ListObjectsV2Output{}, nil
				}
			},
			wantKeys: []string{},
		},
		{
			name:  "list failure is a pagination error",
			input: &s3types.ListInput{Bucket: "test-bucket"},
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					return nil, &types.NoSuchBucket{}
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{}
			tt.setupMock(mock)

			page, err := New(mock).List(context.Background(), tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsPagination(err))
				assert.ErrorIs(t, err, errors.ErrListFailed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, page.Keys)
			assert.Equal(t, tt.wantToken, page.NextContinuationToken)
		})
	}
}

type fakeSource struct {
	pages   []*s3types.ListPage
	inputs  []s3types.ListInput
	failAt  int
	failErr error
}

func (f *fakeSource) ListObjects(_ context.Context, in *s3types.ListInput) (*s3types.ListPage, error) {
	f.inputs = append(f.inputs, *in)
	n := len(f.inputs)
	if f.failAt > 0 && n == f.failAt {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, fmt.Errorf("connection reset")
	}
	return f.pages[n-1], nil
}

func TestPaginator(t *testing.T) {
	src := &fakeSource{
		pages: []*s3types.ListPage{
			{Keys: []string{"a", "b"}, NextContinuationToken: "t1"},
			{Keys: []string{"c"}},
		},
	}

	p := NewPaginator(src, "test-bucket", 2, "0")
	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(context.Background())
		require.NoError(t, err)
		keys = append(keys, page.Keys...)
	}

	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, 2, p.Pages())
	require.Len(t, src.inputs, 2)
	assert.Equal(t, "0", src.inputs[0].StartAfter)
	assert.Empty(t, src.inputs[0].ContinuationToken)
	assert.Equal(t, "t1", src.inputs[1].ContinuationToken)
	assert.Empty(t, src.inputs[1].StartAfter)
	assert.Equal(t, int32(2), src.inputs[1].PageSize)
}

func TestPaginator_ErrorIsPagination(t *testing.T) {
	src := &fakeSource{
		pages:  []*s3types.ListPage{{Keys: []string{"a"}, NextContinuationToken: "t1"}},
		failAt: 2,
	}

	p := NewPaginator(src, "test-bucket", 0, "")
	_, err := p.NextPage(context.Background())
	require.NoError(t, err)

	_, err = p.NextPage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsPagination(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, p.Pages())
	assert.True(t, p.HasMorePages())
}

func TestPaginator_FatalErrorPassesThrough(t *testing.T) {
	cause := errors.NewError("listObjects", errors.ErrInvalidConfig).WithBucket("test-bucket")
	src := &fakeSource{failAt: 1, failErr: cause}

	_, err := NewPaginator(src, "test-bucket", 0, "").NextPage(context.Background())
	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.Equal(t, errors.KindInvalidConfig, errors.KindOf(err))
	assert.NotErrorIs(t, err, errors.ErrListFailed)
}
