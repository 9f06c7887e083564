package hatanaka

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bkg-gnss/crinex/pkg/gnss"
	"github.com/sirupsen/logrus"
)

// decState is the three-value FSM driving a Decompressor.
type decState int

const (
	decStateEpoch decState = iota
	decStateClock
	decStateObservation
)

// svObsKernels owns one NumericKernel per observable index for a given SV.
type svObsKernels struct {
	nums []*NumKernel
	flag *TextKernel
}

// Decompressor is the streaming decompression half of the codec: a
// three-state line engine that consumes compressed CRINEX lines and emits
// fixed-column RINEX bytes. It is single-threaded, stateful, and not safe
// for concurrent use; a Decompressor that returns a stream-poisoning error
// must be discarded by the caller.
type Decompressor struct {
	hv       *HeaderView
	maxOrder int

	state decState
	line  int // counted from the last successful reset

	epochKernel *TextKernel
	desc        EpochDescriptor
	descKnown   bool

	clockKernel *NumKernel
	clockSeen   bool

	svKernels map[SV]*svObsKernels

	svIndex int // cursor i into desc.SVs

	log logrus.FieldLogger
}

// NewDecompressor returns a Decompressor that consumes compressed records
// described by hv. hv is borrowed for the Decompressor's lifetime.
func NewDecompressor(hv *HeaderView, maxOrder int, opts ...Option) (*Decompressor, error) {
	if err := hv.Validate(); err != nil {
		return nil, err
	}
	if maxOrder < 1 {
		maxOrder = DefaultMaxOrder
	}
	o := newOptions(opts...)
	return &Decompressor{
		hv:          hv,
		maxOrder:    maxOrder,
		state:       decStateEpoch,
		epochKernel: NewTextKernel(),
		clockKernel: NewNumKernel(maxOrder),
		svKernels:   make(map[SV]*svObsKernels),
		log:         o.logger,
	}, nil
}

// RequiredSize returns the minimum output buffer length the next call to
// Decompress must be given, per the current state. It is computed from the
// format functions themselves, so it matches the bytes they write, including
// the newline and 32-space indent of every v1/v2 continuation line.
func (d *Decompressor) RequiredSize() int {
	switch d.state {
	case decStateEpoch:
		return 0
	case decStateClock:
		return epochLineSize(d.hv.IsV3(), d.numSat(), true)
	case decStateObservation:
		sv := d.currentSV()
		k := d.hv.K(sv)
		return obsLineSize(d.hv.IsV3(), k)
	}
	return 0
}

func (d *Decompressor) numSat() int {
	if d.descKnown {
		return d.desc.NumSat
	}
	return 0
}

func (d *Decompressor) currentSV() SV {
	if d.svIndex < len(d.desc.SVs) {
		return d.desc.SVs[d.svIndex]
	}
	return SV{}
}

// epochLineSize bounds the decompressed epoch record's byte length for a
// satellite count of numSat, optionally including a clock-offset field.
// Every numeric conversion verb in FormatEpochV1/FormatEpochV3 is
// fixed-width, so the bound is exact for any in-range field value.
func epochLineSize(v3 bool, numSat int, withClock bool) int {
	if v3 {
		size := len(FormatEpochV3(EpochDescriptor{NumSat: numSat}))
		if withClock {
			zero := int64(0)
			size = len(FormatEpochV3(EpochDescriptor{NumSat: numSat, ClockOffset: &zero}))
		}
		return size
	}
	if numSat < 1 {
		numSat = 1
	}
	svs := make([]SV, numSat)
	for i := range svs {
		svs[i] = SV{Sys: gnss.SysGPS, PRN: 1}
	}
	desc := EpochDescriptor{NumSat: numSat, SVs: svs}
	if withClock {
		zero := int64(0)
		desc.ClockOffset = &zero
	}
	return len(FormatEpochV1(desc))
}

// obsLineSize bounds the decompressed observation record's byte length for
// an SV carrying k observables.
func obsLineSize(v3 bool, k int) int {
	if k < 0 {
		k = 0
	}
	if v3 {
		return 3 + k*obsFieldWidth
	}
	if k == 0 {
		return 0
	}
	lines := (k + 4) / 5
	return k*obsFieldWidth + (lines-1)*(1+32)
}

// Decompress consumes one compressed input line, advances the FSM by
// exactly one state, and writes the decompressed bytes into out. It
// returns the number of bytes written. The returned error, if non-nil,
// poisons the Decompressor: the caller must discard it and resynchronize a
// fresh instance on the next reset-marked epoch descriptor.
func (d *Decompressor) Decompress(line string, out []byte) (int, error) {
	need := d.RequiredSize()
	if len(out) < need {
		return 0, ErrBufferOverflow
	}

	d.line++

	switch d.state {
	case decStateEpoch:
		return d.runEpoch(line)
	case decStateClock:
		return d.runClock(line, out)
	case decStateObservation:
		return d.runObservation(line, out)
	}
	return 0, wrapLine(d.line, fmt.Errorf("hatanaka: decompressor in unknown state"))
}

func (d *Decompressor) runEpoch(line string) (int, error) {
	var body string
	isReset := len(line) > 0 && (line[0] == '>' || line[0] == '&')

	if isReset {
		body = line[1:]
		d.epochKernel.Seed([]byte(body))
	} else {
		recovered, err := d.epochKernel.Decompress([]byte(line))
		if err != nil {
			return 0, wrapLine(d.line, err)
		}
		body = string(recovered)
	}

	desc, err := ParseEpoch(body, d.hv.Major, d.hv.DefaultSystem)
	if err != nil {
		d.log.WithError(err).WithField("line", d.line).Warn("hatanaka: rejecting malformed epoch descriptor, awaiting resync")
		return 0, wrapLine(d.line, err)
	}

	if isReset {
		d.line = 0
	}
	d.desc = desc
	d.descKnown = true
	d.state = decStateClock
	return 0, nil
}

func (d *Decompressor) runClock(line string, out []byte) (int, error) {
	var clockOffset *int64

	switch {
	case line == "":
		// no clock offset this epoch.
	case strings.Contains(line, "&"):
		order, value, err := parseResetToken(line)
		if err != nil {
			d.desc.ClockOffset = nil
		} else {
			if err := d.clockKernel.Seed(value, order); err != nil {
				return 0, wrapLine(d.line, err)
			}
			d.clockSeen = true
			clockOffset = &value
		}
	default:
		if n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64); err == nil && d.clockSeen {
			v, err := d.clockKernel.Decompress(n)
			if err != nil {
				return 0, wrapLine(d.line, err)
			}
			clockOffset = &v
		}
		// malformed or not-yet-seeded clock line: treated as no offset.
	}

	d.desc.ClockOffset = clockOffset

	for _, sv := range d.desc.SVs {
		if _, ok := d.svKernels[sv]; !ok {
			k := d.hv.K(sv)
			flag := NewTextKernel()
			flag.Seed([]byte(blanks(2 * k)))
			d.svKernels[sv] = &svObsKernels{
				nums: make([]*NumKernel, k),
				flag: flag,
			}
		}
	}

	formatted := FormatEpoch(d.desc, d.hv.Major)
	n := copy(out, formatted)

	d.svIndex = 0
	if len(d.desc.SVs) == 0 {
		d.state = decStateEpoch
	} else {
		d.state = decStateObservation
	}
	return n, nil
}

func (d *Decompressor) runObservation(line string, out []byte) (int, error) {
	sv := d.currentSV()
	kern, ok := d.svKernels[sv]
	if !ok {
		kk := d.hv.K(sv)
		flag := NewTextKernel()
		flag.Seed([]byte(blanks(2 * kk)))
		kern = &svObsKernels{nums: make([]*NumKernel, kk), flag: flag}
		d.svKernels[sv] = kern
	}
	k := len(kern.nums)

	v3 := d.hv.IsV3()
	base := 0
	svCode := ""
	if v3 {
		svCode = sv.String()
		base = len(svCode)
	}

	buf := make([]byte, base+k*obsFieldWidth)
	if v3 {
		copy(buf, svCode)
	}
	for i := 0; i < k; i++ {
		copy(buf[base+i*obsFieldWidth:], blankObsField())
	}

	rest := line
	missingFrom := k
	present := make([]bool, k)

	for i := 0; i < k; i++ {
		tok, remainder, ok := nextToken(rest)
		if !ok {
			missingFrom = i
			break
		}
		rest = remainder

		if tok == "" {
			continue
		}
		present[i] = true

		val, err := d.decodeNumericToken(kern, i, tok)
		if err != nil {
			// a malformed individual token is tolerated: leave the field
			// blank and continue with the next token.
			continue
		}
		copy(buf[base+i*obsFieldWidth:], formatObsField(val))
	}

	flagsDelta := rest

	// An entirely absent flag-stream delta (as opposed to a present-but-
	// shorter-than-reference one) means the flags are wholly unchanged;
	// read the preserved reference directly rather than feeding the
	// truncating kernel an empty delta, which would instead erase it.
	var flags []byte
	if flagsDelta == "" {
		flags = kern.flag.Reference()
	} else {
		// Columns past the end of a shorter delta keep their reference
		// values, so pad the delta back to the reference length first.
		if ref := kern.flag.Reference(); len(flagsDelta) < len(ref) {
			flagsDelta += blanks(len(ref) - len(flagsDelta))
		}
		f, err := kern.flag.Decompress([]byte(flagsDelta))
		if err != nil {
			return 0, wrapLine(d.line, err)
		}
		flags = f
	}

	// Flags are only painted over columns that actually received an
	// emitted observation; trailing not-yet-emitted columns (whether from
	// truncation or from this call's own missing tail) stay fully blank.
	for i := 0; i < missingFrom; i++ {
		if present[i] {
			paintFlags(buf, base, i, flags)
		}
	}

	if !v3 {
		buf = wrapV1Observation(buf)
	}
	n := copy(out, buf)

	d.svIndex++
	if d.svIndex >= len(d.desc.SVs) {
		d.state = decStateEpoch
	}
	return n, nil
}

// decodeNumericToken applies tok (one of: single digit, multi-digit signed
// integer, or a reset marker) to the per-(SV, observable index) kernel,
// creating it lazily on first use.
func (d *Decompressor) decodeNumericToken(kern *svObsKernels, idx int, tok string) (int64, error) {
	if strings.Contains(tok, "&") {
		order, value, err := parseResetToken(tok)
		if err != nil {
			return 0, err
		}
		nk := NewNumKernel(d.maxOrder)
		if err := nk.Seed(value, order); err != nil {
			return 0, err
		}
		kern.nums[idx] = nk
		return value, nil
	}

	nk := kern.nums[idx]
	if nk == nil {
		return 0, ErrKernelNotInitialized
	}
	delta, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumericToken, tok)
	}
	return nk.Decompress(delta)
}

// parseResetToken parses a "<order>&<integer>" in-band reset marker.
func parseResetToken(tok string) (order int, value int64, err error) {
	i := strings.IndexByte(tok, '&')
	if i < 0 {
		return 0, 0, fmt.Errorf("%w: missing '&' in reset token %q", ErrBadNumericToken, tok)
	}
	orderStr, valueStr := tok[:i], tok[i+1:]
	order, err = strconv.Atoi(strings.TrimSpace(orderStr))
	if err != nil || order < 1 {
		return 0, 0, fmt.Errorf("%w: bad reset order in %q", ErrBadNumericToken, tok)
	}
	value, err = strconv.ParseInt(strings.TrimSpace(valueStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad reset value in %q", ErrBadNumericToken, tok)
	}
	return order, value, nil
}

// wrapV1Observation re-flows a flat sequence of 16-column observation
// fields into 80-column lines: 5 fields per line, continuation lines
// indented by 32 spaces.
func wrapV1Observation(flat []byte) []byte {
	const perLine = 5
	if len(flat)/obsFieldWidth <= perLine {
		return flat
	}

	var b strings.Builder
	for i := 0; i*obsFieldWidth < len(flat); i++ {
		if i > 0 && i%perLine == 0 {
			b.WriteByte('\n')
			b.WriteString(blanks(32))
		}
		start := i * obsFieldWidth
		end := start + obsFieldWidth
		if end > len(flat) {
			end = len(flat)
		}
		b.Write(flat[start:end])
	}
	return []byte(b.String())
}

// nextToken splits off the next space-delimited token from s. ok is false
// when s is exhausted (the line was truncated on the right).
func nextToken(s string) (tok string, rest string, ok bool) {
	if s == "" {
		return "", "", false
	}
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, "", true
	}
	return s[:i], s[i+1:], true
}
