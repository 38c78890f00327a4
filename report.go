package s3encrypt

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// LineReporter writes one tab-separated line per object:
//
//	key<TAB>status<TAB>detail
type LineReporter struct {
	mu     sync.Mutex
	w      io.Writer
	target s3types.SSEType
	err    error
}

// NewLineReporter creates a reporter writing to w. target names the scheme
// remediated objects are rewritten under.
func NewLineReporter(w io.Writer, target s3types.SSEType) *LineReporter {
	return &LineReporter{w: w, target: target}
}

// Report implements s3types.Reporter.
func (r *LineReporter) Report(_ context.Context, result *s3types.RemediationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, "%s\t%s\t%s\n", result.Key, result.Outcome, r.detail(result))
}

// Err returns the first write error, if any.
func (r *LineReporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *LineReporter) detail(result *s3types.RemediationResult) string {
	switch result.Outcome {
	case s3types.OutcomeSkipped:
		return fmt.Sprintf("ServerSideEncryption: %s, no encryption necessary", result.PreviousSSE)
	case s3types.OutcomeRemediated:
		if result.DryRun {
			return fmt.Sprintf("would encrypt using %s (dry run)", r.target)
		}
		return fmt.Sprintf("encrypted using %s", r.target)
	default:
		return fmt.Sprint(result.Err)
	}
}

// MultiReporter fans every outcome out to several reporters in order.
type MultiReporter []s3types.Reporter

// Report implements s3types.Reporter.
func (m MultiReporter) Report(ctx context.Context, result *s3types.RemediationResult) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, result)
		}
	}
}

// ObservePage forwards listing progress to members that observe pages.
func (m MultiReporter) ObservePage(ctx context.Context, bucket string, keys int) {
	for _, r := range m {
		if o, ok := r.(PageObserver); ok {
			o.ObservePage(ctx, bucket, keys)
		}
	}
}
