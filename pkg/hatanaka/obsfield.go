package hatanaka

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// obsFieldWidth is the fixed column width of one observation field: 14
// numeric columns, 1 LLI column, 1 SSI column.
const obsFieldWidth = 16

// formatObsField renders one observation value (in integer milli-units of
// the observable's physical unit) into its 16-column fixed-width field, LLI
// and SSI initially blank. The caller paints the flag columns afterward
// once the per-SV flag kernel has produced them.
func formatObsField(value int64) string {
	return fmt.Sprintf("%14.3f  ", float64(value)/1000.0)
}

// blankObsField is the 16-space field used for a missing observation.
func blankObsField() string {
	return blanks(obsFieldWidth)
}

func blanks(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// ParseObsField is the inverse of formatObsField: it reads one 16-column
// observation field (14 numeric columns, LLI, SSI) and returns the value in
// integer milli-units (nil when the numeric columns are blank, meaning a
// missing observation) plus the two raw flag bytes.
func ParseObsField(field string) (value *int64, flags [2]byte, err error) {
	if len(field) < obsFieldWidth {
		field += blanks(obsFieldWidth - len(field))
	}
	flags[0], flags[1] = field[14], field[15]

	numPart := strings.TrimSpace(field[:14])
	if numPart == "" {
		return nil, flags, nil
	}
	f, perr := strconv.ParseFloat(numPart, 64)
	if perr != nil {
		return nil, flags, fmt.Errorf("parsing observation value %q: %w", numPart, perr)
	}
	v := int64(math.Round(f * 1000))
	return &v, flags, nil
}

// ParseObservationRecord splits a flat (already un-wrapped) sequence of k
// 16-column observation fields into per-observable values and a
// concatenated LLI/SSI flag byte slice of length 2*k, suitable for
// Compressor.CompressObservation. Short input is padded with blank fields.
func ParseObservationRecord(fields string, k int) ([]*int64, []byte, error) {
	values := make([]*int64, k)
	flags := make([]byte, 2*k)
	for i := 0; i < k; i++ {
		start := i * obsFieldWidth
		end := start + obsFieldWidth
		var field string
		if start < len(fields) {
			if end > len(fields) {
				end = len(fields)
			}
			field = fields[start:end]
		}
		v, fl, err := ParseObsField(field)
		if err != nil {
			return nil, nil, err
		}
		values[i] = v
		flags[2*i] = fl[0]
		flags[2*i+1] = fl[1]
	}
	return values, flags, nil
}

// paintFlags overwrites the LLI (column 14) and SSI (column 15) of the
// obsIndex-th 16-column field inside buf with the two bytes from flags at
// offset obsIndex*2, if present. buf must already hold blank or
// value-formatted fields laid end to end starting at base.
func paintFlags(buf []byte, base, obsIndex int, flags []byte) {
	off := base + obsIndex*obsFieldWidth + 14
	fi := obsIndex * 2
	if fi < len(flags) {
		buf[off] = flags[fi]
	}
	if fi+1 < len(flags) {
		buf[off+1] = flags[fi+1]
	}
}
