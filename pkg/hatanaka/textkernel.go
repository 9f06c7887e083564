package hatanaka

// TextKernel is a column-wise differential codec over a mutable reference
// line, grounded on strRecord.Decode in satoshi-pes-crinex's decoder.go
// (see other_examples): space means "copy from reference", '&' means
// "clear this column to space", anything else is a literal replacement.
// The reference is replaced by the produced output on every call, so a
// short delta truncates the reference on the right.
type TextKernel struct {
	ref    []byte
	seeded bool
}

// NewTextKernel returns an unseeded text kernel.
func NewTextKernel() *TextKernel {
	return &TextKernel{}
}

// Seeded reports whether the kernel holds a reference line.
func (k *TextKernel) Seeded() bool { return k.seeded }

// Reference returns the kernel's current reference line. The returned slice
// must not be mutated by the caller.
func (k *TextKernel) Reference() []byte { return k.ref }

// Seed replaces the reference verbatim, as happens on a full reset.
func (k *TextKernel) Seed(ref []byte) {
	k.ref = append([]byte(nil), ref...)
	k.seeded = true
}

// Decompress applies delta against the current reference and returns the
// produced line, which also becomes the new reference. The output's prefix
// of length min(len(delta), len(ref)) takes non-space delta characters over
// the reference; '&' clears a column to space; any tail of delta beyond the
// reference length is copied verbatim, extending the line.
func (k *TextKernel) Decompress(delta []byte) ([]byte, error) {
	if !k.seeded {
		return nil, ErrKernelNotInitialized
	}

	out := make([]byte, len(delta))
	for c, b := range delta {
		switch {
		case b == '&':
			out[c] = ' '
		case b == ' ' && c < len(k.ref):
			out[c] = k.ref[c]
		default:
			// either a literal replacement, or a tail column beyond the
			// reference length, which is always copied verbatim.
			out[c] = b
		}
	}

	k.ref = out
	return out, nil
}

// Compress produces the column-wise delta turning the current reference
// into s, then replaces the reference with s. The result always has length
// len(s); the caller may trim trailing columns that equal the reference
// for wire economy. Decompress truncates to the delta's length, so the
// decoding side pads such a trimmed delta back with spaces before calling
// it, as Decompressor does for flag streams.
func (k *TextKernel) Compress(s []byte) ([]byte, error) {
	if !k.seeded {
		return nil, ErrKernelNotInitialized
	}

	delta := make([]byte, len(s))
	for c := range s {
		if c >= len(k.ref) {
			// no reference column to diff against; the decoder copies any
			// tail beyond the reference length verbatim.
			delta[c] = s[c]
			continue
		}
		switch {
		case s[c] == k.ref[c]:
			delta[c] = ' '
		case s[c] == ' ':
			// an actual space that differs from a non-space reference
			// column cannot be represented by the space escape, use the
			// clear-to-space marker instead.
			delta[c] = '&'
		default:
			delta[c] = s[c]
		}
	}

	k.ref = append([]byte(nil), s...)
	return delta, nil
}
