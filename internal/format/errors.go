// Package format implements the score-file parsers of Component C: ten
// formats that normalise into a shared Song (tempo events + per-track
// rows), plus the build_timeline step that resolves absolute times.
package format

import "errors"

// Sentinel error taxonomy per §7, wrapped with fmt.Errorf("%w: ...") by
// each parser so callers can errors.Is against a specific failure class.
var (
	// ErrUnsupportedFormat is returned when the signature sniff in
	// Load recognises none of the ten supported formats.
	ErrUnsupportedFormat = errors.New("unsupported score format")

	// ErrTruncated is returned when a parser runs out of bytes before
	// a declared chunk/field is fully readable.
	ErrTruncated = errors.New("truncated score data")

	// ErrMalformed is returned for structurally invalid data: bad
	// chunk tags, bad variable-length encodings, offsets past EOF.
	ErrMalformed = errors.New("malformed score data")
)
