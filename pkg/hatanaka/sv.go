package hatanaka

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bkg-gnss/crinex/pkg/gnss"
)

// SV identifies a satellite vehicle by constellation and PRN, e.g. G01, R24.
type SV struct {
	Sys gnss.System
	PRN int
}

// String renders the SV in its three-character RINEX form.
func (sv SV) String() string {
	return fmt.Sprintf("%s%02d", sv.Sys.Abbr(), sv.PRN)
}

// ParseSV parses a three-character SV token such as "G01". A blank
// constellation letter (a space) is tolerated and resolved against def, the
// header's default constellation for legacy single-constellation files.
func ParseSV(tok string, def gnss.System) (SV, error) {
	if len(tok) != 3 {
		return SV{}, fmt.Errorf("%w: %q", ErrSVParsing, tok)
	}

	abbr := tok[:1]
	sys := def
	if abbr != " " {
		s, ok := gnss.SystemByAbbr(abbr)
		if !ok {
			return SV{}, fmt.Errorf("%w: unknown constellation %q", ErrSVParsing, abbr)
		}
		sys = s
	}
	if sys == 0 {
		return SV{}, fmt.Errorf("%w: missing constellation and no default set: %q", ErrSVParsing, tok)
	}

	prn, err := strconv.Atoi(strings.TrimSpace(tok[1:]))
	if err != nil {
		return SV{}, fmt.Errorf("%w: prn %q: %v", ErrSVParsing, tok[1:], err)
	}

	return SV{Sys: sys, PRN: prn}, nil
}

// obsListKey resolves the constellation that sv's observable list is keyed
// under in a HeaderView: all SBAS-class constellations and a header-level
// "Mixed" single observable list fold onto a single shared key.
func obsListKey(hv *HeaderView, sv SV) gnss.System {
	if hv.Mixed {
		return gnss.SysMIXED
	}
	if sv.Sys.IsSBAS() {
		return gnss.SysSBAS
	}
	return sv.Sys
}
