package hatanaka

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultResetPeriod is how often (in epochs) the Compressor re-emits a
// full kernel reset instead of a differential token, bounding how far a
// decoder can diverge from a single corrupted bit. Matches the typical
// R = 64 used by reference Hatanaka encoders.
const DefaultResetPeriod = 64

type svEncKernels struct {
	nums []*NumKernel
	flag *TextKernel
}

// Compressor is the inverse of Decompressor: it consumes parsed RINEX
// records and produces CRINEX wire lines. Like Decompressor it is a
// strictly sequential three-state engine and is not safe for concurrent
// use.
type Compressor struct {
	hv       *HeaderView
	maxOrder int
	period   int

	epochKernel *TextKernel
	epochCount  int

	clockKernel *NumKernel
	clockSeen   bool

	svKernels map[SV]*svEncKernels

	log logrus.FieldLogger
}

// NewCompressor returns a Compressor producing compressed records per hv.
// period is the number of epochs between forced kernel resets; 0 selects
// DefaultResetPeriod.
func NewCompressor(hv *HeaderView, maxOrder, period int, opts ...Option) (*Compressor, error) {
	if err := hv.Validate(); err != nil {
		return nil, err
	}
	if maxOrder < 1 {
		maxOrder = DefaultMaxOrder
	}
	if period < 1 {
		period = DefaultResetPeriod
	}
	o := newOptions(opts...)
	return &Compressor{
		hv:          hv,
		maxOrder:    maxOrder,
		period:      period,
		epochKernel: NewTextKernel(),
		clockKernel: NewNumKernel(maxOrder),
		svKernels:   make(map[SV]*svEncKernels),
		log:         o.logger,
	}, nil
}

// CompressEpoch encodes an epoch descriptor as a wire line: a full reset
// (leading '>' for v3+, '&' for v1/v2) on the first call and every
// period'th call thereafter, otherwise a text delta against the previous
// descriptor. A reset epoch also re-seeds the clock and observation
// kernels on their next use.
func (c *Compressor) CompressEpoch(desc EpochDescriptor) (string, error) {
	body := epochWireBody(desc, c.hv.Major)

	reset := c.epochCount == 0 || c.epochCount%c.period == 0
	c.epochCount++

	if reset {
		// drop the numeric kernels so the clock and every observation of
		// this epoch are emitted as reset markers again.
		c.clockSeen = false
		for _, kern := range c.svKernels {
			for i := range kern.nums {
				kern.nums[i] = nil
			}
		}
		c.epochKernel.Seed([]byte(body))
		marker := byte('&')
		if c.hv.IsV3() {
			marker = '>'
		}
		c.log.WithField("epoch", c.epochCount).Debug("hatanaka: emitting epoch kernel reset")
		return string(marker) + body, nil
	}

	delta, err := c.epochKernel.Compress([]byte(body))
	if err != nil {
		return "", err
	}
	return string(delta), nil
}

// epochWireBody renders the compact (un-marked) epoch descriptor body
// shared by both the reset and delta wire forms.
func epochWireBody(desc EpochDescriptor, major int) string {
	var b strings.Builder
	year := desc.Year
	if major < 3 {
		year %= 100
	}
	fmt.Fprintf(&b, " %4d %02d %02d %02d %02d%11.7f %2d%3d",
		year, desc.Month, desc.Day, desc.Hour, desc.Minute, desc.Second,
		int(desc.Flag), desc.NumSat)
	for _, sv := range desc.SVs {
		b.WriteString(sv.String())
	}
	return b.String()
}

// CompressClock encodes the per-epoch clock offset, if any, as a wire
// line: empty when absent, a reset marker on first use, otherwise a
// differential token.
func (c *Compressor) CompressClock(offset *int64) (string, error) {
	if offset == nil {
		return "", nil
	}
	if !c.clockSeen {
		if err := c.clockKernel.Seed(*offset, c.maxOrder); err != nil {
			return "", err
		}
		c.clockSeen = true
		return fmt.Sprintf("%d&%d", c.maxOrder, *offset), nil
	}
	delta, err := c.clockKernel.Compress(*offset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", delta), nil
}

// CompressObservation encodes one SV's observation line: values holds one
// entry per observable (nil for a missing observation), flags holds the
// two LLI/SSI bytes per observable concatenated (len(flags) == 2*len(values)).
func (c *Compressor) CompressObservation(sv SV, values []*int64, flags []byte) (string, error) {
	kern, ok := c.svKernels[sv]
	if !ok {
		k := c.hv.K(sv)
		fk := NewTextKernel()
		fk.Seed([]byte(blanks(2 * k)))
		kern = &svEncKernels{nums: make([]*NumKernel, k), flag: fk}
		c.svKernels[sv] = kern
	}

	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		if v == nil {
			continue
		}
		tok, err := c.encodeNumericValue(kern, i, *v)
		if err != nil {
			return "", err
		}
		b.WriteString(tok)
	}

	flagDelta, err := kern.flag.Compress(flags)
	if err != nil {
		return "", err
	}
	if strings.TrimRight(string(flagDelta), " ") != "" {
		b.WriteByte(' ')
		b.WriteString(strings.TrimRight(string(flagDelta), " "))
	}

	return b.String(), nil
}

func (c *Compressor) encodeNumericValue(kern *svEncKernels, idx int, value int64) (string, error) {
	nk := kern.nums[idx]
	if nk == nil {
		nk = NewNumKernel(c.maxOrder)
		if err := nk.Seed(value, c.maxOrder); err != nil {
			return "", err
		}
		kern.nums[idx] = nk
		return fmt.Sprintf("%d&%d", c.maxOrder, value), nil
	}
	delta, err := nk.Compress(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", delta), nil
}
