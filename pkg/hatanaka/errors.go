package hatanaka

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the codecs. All are reported synchronously as
// the return value of the call that triggered them; none are fatal to the
// process, but all poison the current stream: the caller must discard the
// codec instance and, for a Decompressor, resynchronize on the next
// reset-marked epoch descriptor.
var (
	// ErrBufferOverflow is returned when the caller-provided output buffer
	// cannot hold the worst-case production for the current state. The
	// input line is not consumed.
	ErrBufferOverflow = errors.New("hatanaka: output buffer too small for current state")

	// ErrEpochFormat is returned when an epoch descriptor line is shorter
	// than the revision's minimum length or otherwise unparsable.
	ErrEpochFormat = errors.New("hatanaka: malformed epoch descriptor")

	// ErrBadV1Format is returned for a RINEX-2-shaped record that violates
	// the fixed-column v1/v2 layout.
	ErrBadV1Format = errors.New("hatanaka: malformed RINEX-2 record")

	// ErrBadV3Format is returned for a RINEX-3-shaped record that violates
	// the one-SV-per-line v3+ layout.
	ErrBadV3Format = errors.New("hatanaka: malformed RINEX-3 record")

	// ErrSVParsing is returned when a satellite vehicle token does not
	// consist of a constellation letter followed by a two-digit PRN.
	ErrSVParsing = errors.New("hatanaka: invalid satellite vehicle identifier")

	// ErrKernelNotInitialized is returned when a numeric or text kernel is
	// asked to compress or decompress a value before it has been seeded.
	ErrKernelNotInitialized = errors.New("hatanaka: kernel used before seed")

	// ErrBadNumericToken is returned for a numeric field that is neither
	// empty, a plain integer, nor a reset marker.
	ErrBadNumericToken = errors.New("hatanaka: malformed numeric token")
)

// LineError associates a stream-poisoning error with the input line that
// caused it, counted from the last successful reset.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("hatanaka: line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// wrapLine builds a *LineError unless err is nil.
func wrapLine(line int, err error) error {
	if err == nil {
		return nil
	}
	return &LineError{Line: line, Err: err}
}
