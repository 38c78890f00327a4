package s3encrypt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

const testBucket = "test-bucket"

func newTestEncrypter(t *testing.T, store Storage, opts ...s3types.EncrypterOption) *Encrypter {
	t.Helper()
	enc, err := NewEncrypter(store, opts...)
	require.NoError(t, err)
	return enc
}

func TestNewEncrypter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		enc := newTestEncrypter(t, testutil.NewMemStorage())
		assert.Equal(t, s3types.SSES3, enc.Target().Type)
		assert.NotEmpty(t, enc.RunID())
	})

	t.Run("options", func(t *testing.T) {
		enc := newTestEncrypter(t, testutil.NewMemStorage(),
			WithSSE(s3types.SSEConfig{Type: s3types.SSEKMS, KMSKeyID: "alias/k"}),
			WithRunID("run-1"),
			WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		)
		assert.Equal(t, "run-1", enc.RunID())
		assert.Equal(t, "alias/k", enc.Target().KMSKeyID)
	})

	t.Run("nil storage", func(t *testing.T) {
		_, err := NewEncrypter(nil)
		require.Error(t, err)
		assert.Equal(t, s3errors.KindInvalidConfig, s3errors.KindOf(err))
	})

	t.Run("invalid sse", func(t *testing.T) {
		_, err := NewEncrypter(testutil.NewMemStorage(), WithSSE(s3types.SSEConfig{Type: "rot13"}))
		require.Error(t, err)
		assert.True(t, s3errors.IsInvalidInput(err))
	})
}

func TestEncrypter_Remediate_Order(t *testing.T) {
	store := testutil.NewMemStorage()
	store.Put(testBucket, "a.txt", s3types.ObjectMetadata{ContentLength: 5}, testutil.PublicReadACL())
	enc := newTestEncrypter(t, store)

	meta, err := store.HeadObject(context.Background(), testBucket, "a.txt")
	require.NoError(t, err)
	store.ResetCalls()

	require.NoError(t, enc.remediate(context.Background(), testBucket, "a.txt", meta, false))

	assert.Equal(t, []testutil.Call{
		{Op: testutil.OpGetACL, Key: "a.txt"},
		{Op: testutil.OpCopy, Key: "a.txt"},
		{Op: testutil.OpPutACL, Key: "a.txt"},
	}, store.Calls())

	obj, ok := store.Get(testBucket, "a.txt")
	require.True(t, ok)
	assert.Equal(t, s3types.SSES3, obj.Meta.ServerSideEncryption)
	assert.Equal(t, testutil.PublicReadACL(), obj.ACL)
}

func TestEncrypter_Remediate_DryRun(t *testing.T) {
	store := testutil.NewMemStorage()
	store.Put(testBucket, "a.txt", s3types.ObjectMetadata{ContentLength: 5}, nil)
	enc := newTestEncrypter(t, store)

	require.NoError(t, enc.remediate(context.Background(), testBucket, "a.txt", &s3types.ObjectMetadata{}, true))

	assert.Equal(t, []testutil.Call{{Op: testutil.OpGetACL, Key: "a.txt"}}, store.Calls())
	obj, _ := store.Get(testBucket, "a.txt")
	assert.Equal(t, s3types.SSENone, obj.Meta.ServerSideEncryption)
}

func TestEncrypter_Remediate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		failOp    string
		wantCalls []string
		wantMsg   string
	}{
		{
			name:      "acl snapshot fails before any mutation",
			failOp:    testutil.OpGetACL,
			wantCalls: []string{testutil.OpGetACL},
		},
		{
			name:      "copy fails and acl is left alone",
			failOp:    testutil.OpCopy,
			wantCalls: []string{testutil.OpGetACL, testutil.OpCopy},
		},
		{
			name:      "acl restore fails",
			failOp:    testutil.OpPutACL,
			wantCalls: []string{testutil.OpGetACL, testutil.OpCopy, testutil.OpPutACL},
			wantMsg:   "ACL could not be restored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStorage()
			store.Put(testBucket, "a.txt", s3types.ObjectMetadata{}, nil)
			store.FailOn(tt.failOp, "a.txt", errors.New("injected"))
			enc := newTestEncrypter(t, store)

			err := enc.remediate(context.Background(), testBucket, "a.txt", &s3types.ObjectMetadata{}, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "injected")
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			var ops []string
			for _, c := range store.Calls() {
				ops = append(ops, c.Op)
			}
			assert.Equal(t, tt.wantCalls, ops)
		})
	}
}

func TestEncrypter_Process_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := testutil.NewMemStorage()
	store.Put(testBucket, "a.txt", s3types.ObjectMetadata{}, nil)
	enc := newTestEncrypter(t, store, WithLogger(logger), WithRunID("run-42"))

	result := enc.process(context.Background(), testBucket, "a.txt", false)
	require.Equal(t, s3types.OutcomeRemediated, result.Outcome)

	out := buf.String()
	assert.Contains(t, out, "object remediated")
	assert.Contains(t, out, "run_id=run-42")
	assert.Contains(t, out, "key=a.txt")
}
