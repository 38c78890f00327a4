package s3encrypt

import "github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"

// NeedsRemediation reports whether an object must be rewritten to carry the
// target encryption indicator. Only the indicator is compared; an object
// already under target is never rewritten, whatever key protects it.
// A nil snapshot or an empty indicator always needs remediation.
func NeedsRemediation(meta *s3types.ObjectMetadata, target s3types.SSEType) bool {
	if meta == nil {
		return true
	}
	return meta.ServerSideEncryption != target
}
