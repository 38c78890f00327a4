package s3encrypt

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// DefaultPageSize is the listing page size used when BucketConfig leaves it unset.
const DefaultPageSize int32 = 200

// BucketConfig holds the parameters of one bucket pass.
type BucketConfig struct {
	// Bucket to scan
	Bucket string

	// PageSize is the number of keys requested per listing call (1..1000).
	// Zero selects DefaultPageSize.
	PageSize int32

	// StartAfter resumes a previous run: only keys strictly greater are examined
	StartAfter string

	// MaxObjects caps how many objects are examined. Zero means unlimited.
	MaxObjects int

	// DryRun classifies objects without issuing any copy or ACL write
	DryRun bool
}

// Validate rejects configurations before any storage call is made.
func (c *BucketConfig) Validate() error {
	if err := validation.ValidateBucketName(c.Bucket); err != nil {
		return err
	}
	if c.PageSize != 0 {
		if err := validation.ValidatePageSize(c.PageSize); err != nil {
			return err
		}
	}
	if err := validation.ValidateMaxObjects(c.MaxObjects); err != nil {
		return err
	}
	if c.StartAfter != "" {
		if err := validation.ValidateObjectKey(c.StartAfter); err != nil {
			return errors.NewError("validateStartAfter", errors.ErrInvalidConfig).
				WithMessage(err.Error())
		}
	}
	return nil
}

func (c *BucketConfig) pageSize() int32 {
	if c.PageSize == 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// BucketResult holds the counters of one bucket pass. It is never persisted;
// callers resume by passing LastKey as the next StartAfter.
type BucketResult struct {
	// Examined counts every object processed, whatever the outcome
	Examined int

	// AlreadyEncrypted counts objects that already carried the target
	AlreadyEncrypted int

	// Remediated counts objects rewritten, or that would have been under dry run
	Remediated int

	// Failed counts objects whose processing hit an error
	Failed int

	// BytesRemediated is the total size of remediated objects
	BytesRemediated int64

	// LastKey is the last key examined; empty when nothing was examined
	LastKey string

	// Pages is the number of listing pages fetched
	Pages int

	// Duration is the wall time of the pass
	Duration time.Duration

	errs *multierror.Error
}

// Err returns the per-object failures aggregated into one error, or nil.
func (r *BucketResult) Err() error {
	return r.errs.ErrorOrNil()
}

// Errors returns the individual per-object failures.
func (r *BucketResult) Errors() []error {
	if r.errs == nil {
		return nil
	}
	return r.errs.Errors
}

func (r *BucketResult) record(result *s3types.RemediationResult) {
	r.Examined++
	r.LastKey = result.Key

	switch result.Outcome {
	case s3types.OutcomeSkipped:
		r.AlreadyEncrypted++
	case s3types.OutcomeRemediated:
		r.Remediated++
		r.BytesRemediated += result.Size
	case s3types.OutcomeFailed:
		r.Failed++
		r.errs = multierror.Append(r.errs, result.Err)
	}
}

// PageObserver is implemented by reporters that also want to observe
// listing progress.
type PageObserver interface {
	ObservePage(ctx context.Context, bucket string, keys int)
}

// RemediateBucket walks cfg.Bucket in key order starting after cfg.StartAfter
// and brings every object under the target encryption.
//
// Per-object failures are counted and reported but never stop the pass. A
// listing failure stops the pass and is returned, with kind pagination,
// alongside the partial result. Cancellation is honoured between objects.
func (e *Encrypter) RemediateBucket(ctx context.Context, cfg BucketConfig) (*BucketResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &BucketResult{}
	defer func() {
		result.Duration = time.Since(start)
	}()

	logger := e.logger.With("bucket", cfg.Bucket)
	logger.InfoContext(ctx, "starting bucket remediation",
		"start_after", cfg.StartAfter,
		"max_objects", cfg.MaxObjects,
		"page_size", cfg.pageSize(),
		"dry_run", cfg.DryRun,
		"sse", string(e.sse.Type))

	paginator := list.NewPaginator(e.storage, cfg.Bucket, cfg.pageSize(), cfg.StartAfter)

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "listing failed",
				"last_key", result.LastKey,
				"error", err)
			return result, err
		}
		result.Pages = paginator.Pages()

		if observer, ok := e.reporter.(PageObserver); ok {
			observer.ObservePage(ctx, cfg.Bucket, len(page.Keys))
		}

		if len(page.Keys) == 0 {
			break
		}

		for _, key := range page.Keys {
			if cfg.MaxObjects > 0 && result.Examined >= cfg.MaxObjects {
				e.logCompletion(ctx, logger, result, "cap reached")
				return result, nil
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.record(e.process(ctx, cfg.Bucket, key, cfg.DryRun))
		}

		if cfg.MaxObjects > 0 && result.Examined >= cfg.MaxObjects {
			e.logCompletion(ctx, logger, result, "cap reached")
			return result, nil
		}
	}

	e.logCompletion(ctx, logger, result, "bucket exhausted")
	return result, nil
}

func (e *Encrypter) logCompletion(ctx context.Context, logger *slog.Logger, result *BucketResult, reason string) {
	logger.InfoContext(ctx, "bucket remediation finished",
		"reason", reason,
		"examined", result.Examined,
		"already_encrypted", result.AlreadyEncrypted,
		"remediated", result.Remediated,
		"failed", result.Failed,
		"last_key", result.LastKey)
}
