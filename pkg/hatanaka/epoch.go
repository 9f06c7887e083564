package hatanaka

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bkg-gnss/crinex/pkg/gnss"
)

// EpochFlag classifies the condition of an epoch, carried verbatim through
// compression. EpochFlagStartMovingAntenna through EpochFlagExternalEvent mark
// a "special event" record whose SV count instead counts the lines of embedded
// header/event text; values above EpochFlagCycleSlip are rejected. The
// codec only needs to recognize and round-trip the flag, not interpret it.
type EpochFlag int

// Epoch flag values, per the RINEX observation record definition.
const (
	EpochFlagOK EpochFlag = iota
	EpochFlagPowerFailure
	EpochFlagStartMovingAntenna
	EpochFlagNewSiteOccupation
	EpochFlagHeaderFollows
	EpochFlagExternalEvent
	EpochFlagCycleSlip
)

func parseEpochFlag(tok string) (EpochFlag, error) {
	n, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil || n < 0 || n > int(EpochFlagCycleSlip) {
		return 0, fmt.Errorf("%w: bad epoch flag %q", ErrEpochFormat, tok)
	}
	return EpochFlag(n), nil
}

// EpochDescriptor is the parsed form of an epoch's timestamp line, common to
// both the v1/v2 and v3+ layouts.
type EpochDescriptor struct {
	Year, Month, Day, Hour, Minute int
	Second                         float64
	Flag                           EpochFlag
	NumSat                         int
	SVs                            []SV
	ClockOffset                    *int64
}

// minV1EpochLen and minV3EpochLen bound the shortest tolerable compact
// epoch descriptor (after the reset marker / leading space), below which
// tokenizeHead cannot recover all eight head fields.
const (
	minV1EpochLen = 26
	minV3EpochLen = 26
)

// tokenizeHead scans the first 8 whitespace-separated fields of a compact
// epoch descriptor (year month day hour minute second flag numsat) and
// returns them along with the byte offset where the remainder -- the
// concatenated 3-character SV tokens -- begins. This tolerates the exact
// column layout of the compact wire form without depending on the fixed
// byte offsets the RINEX2CRX reference implementation uses internally,
// which differ between v1/v2 and v3+ and are not otherwise observable on
// the wire.
func tokenizeHead(line string, def gnss.System) (EpochDescriptor, int, error) {
	var desc EpochDescriptor
	fields := make([]string, 0, 8)
	i := 0
	n := len(line)
	for len(fields) < 8 {
		for i < n && line[i] == ' ' {
			i++
		}
		start := i
		for i < n && line[i] != ' ' {
			// the satellite count may be followed directly by the SV list.
			if len(fields) == 7 && (line[i] < '0' || line[i] > '9') {
				break
			}
			i++
		}
		if start == i {
			return desc, 0, fmt.Errorf("%w: too few fields in epoch descriptor", ErrEpochFormat)
		}
		fields = append(fields, line[start:i])
	}

	var err error
	if desc.Year, err = strconv.Atoi(fields[0]); err != nil {
		return desc, 0, fmt.Errorf("%w: bad year %q", ErrEpochFormat, fields[0])
	}
	if desc.Month, err = strconv.Atoi(fields[1]); err != nil {
		return desc, 0, fmt.Errorf("%w: bad month %q", ErrEpochFormat, fields[1])
	}
	if desc.Day, err = strconv.Atoi(fields[2]); err != nil {
		return desc, 0, fmt.Errorf("%w: bad day %q", ErrEpochFormat, fields[2])
	}
	if desc.Hour, err = strconv.Atoi(fields[3]); err != nil {
		return desc, 0, fmt.Errorf("%w: bad hour %q", ErrEpochFormat, fields[3])
	}
	if desc.Minute, err = strconv.Atoi(fields[4]); err != nil {
		return desc, 0, fmt.Errorf("%w: bad minute %q", ErrEpochFormat, fields[4])
	}
	if desc.Second, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return desc, 0, fmt.Errorf("%w: bad seconds %q", ErrEpochFormat, fields[5])
	}
	if desc.Flag, err = parseEpochFlag(fields[6]); err != nil {
		return desc, 0, err
	}
	if desc.NumSat, err = strconv.Atoi(fields[7]); err != nil || desc.NumSat < 0 {
		return desc, 0, fmt.Errorf("%w: bad satellite count %q", ErrEpochFormat, fields[7])
	}

	return desc, i, nil
}

// parseSVList splits the SV-token remainder of an epoch descriptor (the
// bytes after the head fields, concatenated three characters per SV, no
// separators) into up to numSat satellites. When rest holds fewer than
// numSat complete tokens, parsing stops there: the returned slice is shorter
// than numSat and no error is reported.
func parseSVList(rest string, numSat int, def gnss.System) ([]SV, error) {
	svs := make([]SV, 0, numSat)
	for c := 0; c < numSat; c++ {
		lo, hi := c*3, c*3+3
		if hi > len(rest) {
			break
		}
		sv, err := ParseSV(rest[lo:hi], def)
		if err != nil {
			return nil, err
		}
		svs = append(svs, sv)
	}
	return svs, nil
}

// parseEpochV3 parses a v3+ compact epoch descriptor, i.e. the bytes after
// the leading '>' reset marker (or the fully-recovered text-delta line,
// also without its leading marker byte).
func parseEpochV3(body string, def gnss.System) (EpochDescriptor, error) {
	if len(body) < minV3EpochLen {
		return EpochDescriptor{}, fmt.Errorf("%w: %w: v3 descriptor too short", ErrEpochFormat, ErrBadV3Format)
	}
	desc, rest, err := tokenizeHead(body, def)
	if err != nil {
		return EpochDescriptor{}, err
	}
	for rest < len(body) && body[rest] == ' ' {
		rest++
	}
	svs, err := parseSVList(body[rest:], desc.NumSat, def)
	if err != nil {
		return EpochDescriptor{}, err
	}
	desc.SVs = svs
	return desc, nil
}

// parseEpochV1 parses a v1/v2 compact epoch descriptor. Same head fields as
// v3+ on the wire; the SV list starts right after the satellite count, so a
// blank constellation letter on the first SV is kept and resolved to def.
func parseEpochV1(body string, def gnss.System) (EpochDescriptor, error) {
	if len(body) < minV1EpochLen {
		return EpochDescriptor{}, fmt.Errorf("%w: %w: v1/v2 descriptor too short", ErrEpochFormat, ErrBadV1Format)
	}
	desc, rest, err := tokenizeHead(body, def)
	if err != nil {
		return EpochDescriptor{}, err
	}
	svs, err := parseSVList(body[rest:], desc.NumSat, def)
	if err != nil {
		return EpochDescriptor{}, err
	}
	desc.SVs = svs
	return desc, nil
}

// ParseEpoch parses a compact epoch descriptor body (with any leading reset
// marker byte already stripped by the caller) for the given major revision.
func ParseEpoch(body string, major int, def gnss.System) (EpochDescriptor, error) {
	if major >= 3 {
		return parseEpochV3(body, def)
	}
	return parseEpochV1(body, def)
}

// ParseEpochWithClock parses a decompressed, plain-text epoch record body
// (no leading reset marker) the same way as ParseEpoch, additionally
// recovering a trailing clock-offset field when present, as written by
// FormatEpochV3/FormatEpochV1 when desc.ClockOffset is set. It is used by
// callers driving a Compressor from a plain RINEX observation file, where
// the clock offset travels on the epoch line itself rather than as a
// separate input. For major >= 3 the record carries no SV list: desc.SVs is
// left empty and everything after the satellite count is read as the clock
// offset.
func ParseEpochWithClock(body string, major int, def gnss.System) (EpochDescriptor, error) {
	desc, rest, err := tokenizeHead(body, def)
	if err != nil {
		return EpochDescriptor{}, err
	}
	svEnd := rest
	if major < 3 {
		svEnd = rest + desc.NumSat*3
		if svEnd > len(body) {
			svEnd = len(body)
		}
		svs, err := parseSVList(body[rest:], desc.NumSat, def)
		if err != nil {
			return EpochDescriptor{}, err
		}
		desc.SVs = svs
	}

	if tail := strings.TrimSpace(body[svEnd:]); tail != "" {
		if f, ferr := strconv.ParseFloat(tail, 64); ferr == nil {
			v := int64(math.Round(f * 1e6))
			desc.ClockOffset = &v
		}
	}
	return desc, nil
}

// FormatEpochV3 renders desc as the fixed-column v3+ epoch record line,
// opened by '>'. Clock offset, when present, is appended directly after the
// satellite count as a 15.12f field in seconds.
func FormatEpochV3(desc EpochDescriptor) string {
	line := fmt.Sprintf("> %4d %02d %02d %02d %02d%11.7f %2d%3d",
		desc.Year, desc.Month, desc.Day, desc.Hour, desc.Minute, desc.Second,
		int(desc.Flag), desc.NumSat)
	if desc.ClockOffset != nil {
		line += fmt.Sprintf("%15.12f", float64(*desc.ClockOffset)/1e6)
	}
	return line
}

// FormatEpochV1 renders desc as the fixed-column, 80-column-wrapped v1/v2
// epoch record block: a head line holding the timestamp, flag, satellite
// count and up to 12 SV tokens, followed by as many 32-space-indented
// continuation lines as required to list every SV 12 to a line.
func FormatEpochV1(desc EpochDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, " %02d %2d %2d %2d %2d%11.7f  %d%3d",
		desc.Year%100, desc.Month, desc.Day, desc.Hour, desc.Minute, desc.Second,
		int(desc.Flag), desc.NumSat)

	for i, sv := range desc.SVs {
		if i > 0 && i%12 == 0 {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", 32))
		}
		b.WriteString(sv.String())
	}

	if desc.ClockOffset != nil {
		fmt.Fprintf(&b, "%9.6f", float64(*desc.ClockOffset)/1e6)
	}
	return b.String()
}

// FormatEpoch dispatches to FormatEpochV1/FormatEpochV3 by major revision.
func FormatEpoch(desc EpochDescriptor, major int) string {
	if major >= 3 {
		return FormatEpochV3(desc)
	}
	return FormatEpochV1(desc)
}
