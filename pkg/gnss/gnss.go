// Package gnss contains common constants and type definitions shared by the
// RINEX and CRINEX codecs.
package gnss

import (
	"encoding/json"
	"fmt"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysNavIC
	SysSBAS
	SysMIXED
)

func (sys System) String() string {
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "NavIC", "SBAS", "MIXED"}[sys]
}

// Abbr returns the system's one-letter abbreviation used in RINEX, e.g. in SV identifiers.
func (sys System) Abbr() string {
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON marshals a System using its RINEX abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return json.Marshal(sys.Abbr())
}

// sysPerAbbr maps the one-letter RINEX system abbreviation to a System.
var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysNavIC,
	"S": SysSBAS,
	"M": SysMIXED,
}

// SystemByAbbr returns the System for a one-letter RINEX abbreviation.
func SystemByAbbr(abbr string) (System, bool) {
	sys, ok := sysPerAbbr[abbr]
	return sys, ok
}

// IsSBAS reports whether sys belongs to the (augmentation) SBAS class. CRINEX and RINEX
// headers fold all SBAS constellations onto a single shared observable list.
func (sys System) IsSBAS() bool {
	return sys == SysSBAS
}

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems in sitelog manner GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}

// MarshalJSON marshals Systems as a list of RINEX abbreviations.
func (syss Systems) MarshalJSON() ([]byte, error) {
	abbrs := make([]string, 0, len(syss))
	for _, sys := range syss {
		abbrs = append(abbrs, sys.Abbr())
	}
	return json.Marshal(abbrs)
}

// ParseSatSystems parses a sitelog-style "GPS+GLO+GAL" string into a Systems slice.
func ParseSatSystems(s string) (Systems, error) {
	parts := strings.Split(s, "+")
	syss := make(Systems, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "GPS":
			syss = append(syss, SysGPS)
		case "GLO":
			syss = append(syss, SysGLO)
		case "GAL":
			syss = append(syss, SysGAL)
		case "BDS":
			syss = append(syss, SysBDS)
		case "QZSS":
			syss = append(syss, SysQZSS)
		case "SBAS":
			syss = append(syss, SysSBAS)
		case "IRNSS", "NavIC":
			syss = append(syss, SysNavIC)
		case "MIXED":
			syss = append(syss, SysMIXED)
		default:
			return nil, fmt.Errorf("gnss: invalid satellite system: %q", part)
		}
	}
	return syss, nil
}
