package errors

// Kind classifies a failure so callers can decide whether it is isolated to a
// single object or fatal to the whole run.
// Kinds are strings for debuggability and natural log output.
type Kind string

const (
	// Object errors.

	// KindNotFound indicates the object vanished between listing and processing.
	KindNotFound Kind = "not_found"

	// KindAccessDenied indicates the credentials lack permission on a resource.
	KindAccessDenied Kind = "access_denied"

	// KindTransient indicates a network, throttling, or service-side failure.
	KindTransient Kind = "transient"

	// Run errors.

	// KindPagination indicates the listing call failed; no further progress is possible.
	KindPagination Kind = "pagination"

	// KindInvalidConfig indicates run parameters were rejected before any storage call.
	KindInvalidConfig Kind = "invalid_config"

	// KindInvalidInput indicates a malformed bucket name, key, or argument.
	KindInvalidInput Kind = "invalid_input"

	// KindUnknown indicates an unclassified failure.
	KindUnknown Kind = "unknown"
)

// Fatal reports whether a failure of this kind must stop a multi-object run.
func (k Kind) Fatal() bool {
	return k == KindPagination || k == KindInvalidConfig
}

// String returns the kind as a string.
func (k Kind) String() string {
	return string(k)
}
