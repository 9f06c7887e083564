package hatanaka

import "fmt"

// DefaultMaxOrder is the predictor order used when a codec is constructed
// without an explicit order. 5 is considered optimal; historical CRX2RNX
// tooling is limited to 3, see CompatMaxOrder.
const DefaultMaxOrder = 5

// CompatMaxOrder bounds the predictor order for compatibility with the
// historical CRX2RNX/RNX2CRX tools.
const CompatMaxOrder = 3

// NumKernel is a fixed-order polynomial predictor over signed integers,
// grounded on the differencing recurrence of satoshi-pes-crinex's
// diffRecord.Decode (see other_examples), generalized here to a symmetric
// compress/decompress pair over an explicit forward-difference pyramid.
//
// levels[0] holds the last reconstructed (or source) value; levels[k] for
// k in [1, order] holds the last k-th order forward difference. Seeding
// resets the pyramid; every subsequent call replaces it in place.
type NumKernel struct {
	maxOrder int
	order    int
	seeded   bool
	levels   []int64
}

// NewNumKernel returns a kernel whose effective order never exceeds maxOrder.
func NewNumKernel(maxOrder int) *NumKernel {
	if maxOrder < 1 {
		maxOrder = DefaultMaxOrder
	}
	return &NumKernel{maxOrder: maxOrder}
}

// Seeded reports whether the kernel has been seeded since construction or
// the last reset.
func (k *NumKernel) Seeded() bool { return k.seeded }

// Order returns the kernel's current effective order, or 0 if unseeded.
func (k *NumKernel) Order() int { return k.order }

// Seed re-initializes the kernel with value as the current reconstructed
// value and order as the new effective predictor order (clamped to the
// kernel's configured maximum). A reset marker in the stream always
// supersedes prior state, regardless of what came before.
func (k *NumKernel) Seed(value int64, order int) error {
	if order < 1 {
		return fmt.Errorf("%w: seed order %d < 1", ErrBadNumericToken, order)
	}
	m := order
	if m > k.maxOrder {
		m = k.maxOrder
	}
	k.order = m
	k.levels = make([]int64, m+1)
	k.levels[0] = value
	k.seeded = true
	return nil
}

// Decompress interprets delta as the kernel's order-th forward difference of
// the next output and returns the reconstructed value, i.e. the exact
// inverse of Compress against the same prior state.
func (k *NumKernel) Decompress(delta int64) (int64, error) {
	if !k.seeded {
		return 0, ErrKernelNotInitialized
	}
	next := make([]int64, k.order+1)
	next[k.order] = delta
	for i := k.order; i > 0; i-- {
		next[i-1] = next[i] + k.levels[i-1]
	}
	k.levels = next
	return k.levels[0], nil
}

// Compress produces the order-th finite forward difference of value against
// the kernel's history and updates that history with value.
func (k *NumKernel) Compress(value int64) (int64, error) {
	if !k.seeded {
		return 0, ErrKernelNotInitialized
	}
	next := make([]int64, k.order+1)
	next[0] = value
	for i := 1; i <= k.order; i++ {
		next[i] = next[i-1] - k.levels[i-1]
	}
	k.levels = next
	return k.levels[k.order], nil
}
