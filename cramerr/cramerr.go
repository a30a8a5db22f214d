// Package cramerr defines the sentinel error taxonomy shared by every layer
// of the codec: bitio, block, codec, cramhdr, slice and container. Call
// sites wrap these sentinels with context using github.com/pkg/errors so
// that errors.Is still matches against the taxonomy further up the stack.
package cramerr

import "errors"

// Sentinel errors, one per category named in the design's error taxonomy.
var (
	// ErrTruncatedInput is returned when a bit or byte read would cross the
	// end of the underlying buffer before the requested value is complete.
	ErrTruncatedInput = errors.New("cramerr: truncated input")

	// ErrMalformedVarint is returned by the ITF-8/LTF-8 decoders on a
	// corrupt length prefix or premature end of buffer.
	ErrMalformedVarint = errors.New("cramerr: malformed varint")

	// ErrMalformedDescriptor is returned when a codec descriptor's byte
	// layout does not match its declared kind.
	ErrMalformedDescriptor = errors.New("cramerr: malformed codec descriptor")

	// ErrMalformedHeader is returned when a container, compression or
	// slice header fails to parse.
	ErrMalformedHeader = errors.New("cramerr: malformed header")

	// ErrUnknownCompressionMethod is returned when a block's method byte
	// is outside the closed set of known compression methods.
	ErrUnknownCompressionMethod = errors.New("cramerr: unknown compression method")

	// ErrUnsupportedCodec is returned when a codec kind is outside the
	// closed set the catalogue implements.
	ErrUnsupportedCodec = errors.New("cramerr: unsupported codec")

	// ErrMissingCodec is returned when a data series required by the
	// caller has no codec in the compression header.
	ErrMissingCodec = errors.New("cramerr: missing codec for data series")

	// ErrMissingBlock is returned when a codec's content id is not
	// present among a slice's blocks.
	ErrMissingBlock = errors.New("cramerr: missing block for content id")

	// ErrReferenceUnavailable is returned when the reference provider
	// fails to supply bases for a required range.
	ErrReferenceUnavailable = errors.New("cramerr: reference unavailable")

	// ErrReferenceMismatch is returned when a slice's MD5 does not match
	// the reference bases supplied for its span.
	ErrReferenceMismatch = errors.New("cramerr: reference MD5 mismatch")

	// ErrInvalidRecord is returned when a decoded record violates one of
	// the structural invariants (negative length, out-of-range mate
	// link, CIGAR overflow, aux length mismatch, ...).
	ErrInvalidRecord = errors.New("cramerr: invalid record")
)
