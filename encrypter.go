package s3encrypt

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// Encrypter audits objects and rewrites the ones lacking the target
// encryption. It processes one object at a time and is not safe for
// concurrent use.
type Encrypter struct {
	storage  Storage
	logger   *slog.Logger
	reporter s3types.Reporter
	sse      s3types.SSEConfig
	runID    string
}

// NewEncrypter creates an Encrypter over storage.
// The target defaults to SSE-S3 (AES256).
//
// Example:
//
//	enc, err := s3encrypt.NewEncrypter(store,
//	    s3encrypt.WithLogger(slog.Default()),
//	    s3encrypt.WithSSE(s3types.SSEConfig{Type: s3types.SSEKMS}),
//	)
func NewEncrypter(storage Storage, opts ...s3types.EncrypterOption) (*Encrypter, error) {
	if storage == nil {
		return nil, errors.NewError("newEncrypter", errors.ErrInvalidConfig).
			WithMessage("storage cannot be nil")
	}

	cfg := &s3types.EncrypterConfig{
		SSE: s3types.SSEConfig{Type: s3types.SSES3},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateSSE(cfg.SSE); err != nil {
		return nil, err
	}

	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = s3types.ReporterFunc(func(context.Context, *s3types.RemediationResult) {})
	}

	return &Encrypter{
		storage:  storage,
		logger:   logger.With("run_id", cfg.RunID),
		reporter: reporter,
		sse:      cfg.SSE,
		runID:    cfg.RunID,
	}, nil
}

// RunID returns the identifier attached to this Encrypter's log lines.
func (e *Encrypter) RunID() string {
	return e.runID
}

// Target returns the encryption scheme objects are brought under.
func (e *Encrypter) Target() s3types.SSEConfig {
	return e.sse
}

// process runs head, decision and remediation for one object and reports the
// outcome. It never returns an error; failures are captured in the result.
//
// The object is processed under a context detached from ctx's cancellation:
// once the copy has landed, the ACL restore must run even if the caller has
// been interrupted. Callers check cancellation between objects.
func (e *Encrypter) process(ctx context.Context, bucket, key string, dryRun bool) *s3types.RemediationResult {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	result := &s3types.RemediationResult{
		Bucket: bucket,
		Key:    key,
		DryRun: dryRun,
	}

	meta, err := e.storage.HeadObject(ctx, bucket, key)
	switch {
	case err != nil:
		result.Outcome = s3types.OutcomeFailed
		result.Err = err
	case !NeedsRemediation(meta, e.sse.Type):
		result.Outcome = s3types.OutcomeSkipped
		result.PreviousSSE = meta.ServerSideEncryption
		result.Size = meta.ContentLength
	default:
		result.PreviousSSE = meta.ServerSideEncryption
		result.Size = meta.ContentLength
		if err := e.remediate(ctx, bucket, key, meta, dryRun); err != nil {
			result.Outcome = s3types.OutcomeFailed
			result.Err = err
		} else {
			result.Outcome = s3types.OutcomeRemediated
			result.Rewritten = !dryRun
		}
	}

	result.Duration = time.Since(start)
	e.log(ctx, result)
	e.reporter.Report(ctx, result)

	return result
}

// remediate rewrites one object under the target encryption. The ACL
// snapshot is taken first and restored after the copy, since the copy resets
// the ACL to the bucket default. Under dry run only the snapshot is read.
func (e *Encrypter) remediate(
	ctx context.Context,
	bucket, key string,
	meta *s3types.ObjectMetadata,
	dryRun bool,
) error {
	snapshot, err := e.storage.GetObjectACL(ctx, bucket, key)
	if err != nil {
		return err
	}

	if dryRun {
		return nil
	}

	sse := e.sse
	if err := e.storage.EncryptCopy(ctx, bucket, key, meta, &sse); err != nil {
		return err
	}

	if err := e.storage.PutObjectACL(ctx, bucket, key, snapshot); err != nil {
		return errors.NewObjectError("restoreAcl", bucket, key, err).
			WithMessage("object was re-encrypted but its ACL could not be restored")
	}

	return nil
}

func (e *Encrypter) log(ctx context.Context, result *s3types.RemediationResult) {
	attrs := []any{
		"bucket", result.Bucket,
		"key", result.Key,
		"outcome", string(result.Outcome),
		"dry_run", result.DryRun,
		"duration", result.Duration,
	}

	switch result.Outcome {
	case s3types.OutcomeFailed:
		e.logger.WarnContext(ctx, "object remediation failed",
			append(attrs, "error", result.Err, "kind", string(errors.KindOf(result.Err)))...)
	case s3types.OutcomeRemediated:
		e.logger.InfoContext(ctx, "object remediated",
			append(attrs, "previous_sse", string(result.PreviousSSE), "size", result.Size)...)
	default:
		e.logger.DebugContext(ctx, "object already encrypted", attrs...)
	}
}
