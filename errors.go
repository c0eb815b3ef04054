package jpeg2000

import "fmt"

// Kind classifies a decode or encode failure so callers can react
// programmatically (e.g. retry with TolerateTruncation) instead of
// string-matching error text.
type Kind int

const (
	// KindMalformedMarker means a marker segment's length or field
	// contents could not be parsed.
	KindMalformedMarker Kind = iota
	// KindTruncatedCodestream means the codestream ended before all
	// tile-parts were read.
	KindTruncatedCodestream
	// KindUnsupportedFeature means the codestream is well-formed but
	// uses a capability this implementation does not support.
	KindUnsupportedFeature
	// KindInvalidHeader means the main header failed validation
	// (inconsistent SIZ/COD/QCD values).
	KindInvalidHeader
	// KindInvalidParameter means the caller's configuration violates a
	// standard constraint (code-block size, layer count, tile grid).
	KindInvalidParameter
	// KindRateBudgetExceeded means a rate target was below the smallest
	// possible codestream; the encoder then emits empty layers and
	// records this kind as a Warning rather than returning it.
	KindRateBudgetExceeded
	// KindCancelled means the caller's context was cancelled; the
	// operation stopped at a tile or code-block boundary.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindMalformedMarker:
		return "malformed marker"
	case KindTruncatedCodestream:
		return "truncated codestream"
	case KindUnsupportedFeature:
		return "unsupported feature"
	case KindInvalidHeader:
		return "invalid header"
	case KindInvalidParameter:
		return "invalid parameter"
	case KindRateBudgetExceeded:
		return "rate budget exceeded"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by this package's decode and encode
// entry points, carrying a Kind alongside the wrapped detail so
// callers can use errors.As to branch on failure class (e.g. only
// retrying truncated-codestream errors with TolerateTruncation).
type Error struct {
	Kind Kind
	Op   string // operation in progress, e.g. "decode tile 3"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Warning describes a recoverable condition surfaced during decode or
// encode rather than returned as a hard error — an unknown marker skipped, a
// tile replaced with zero data under TolerateTruncation, or a
// rate-control target that had to degrade.
type Warning struct {
	Kind    Kind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
