package rinex

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bkg-gnss/crinex/pkg/gnss"
	"github.com/bkg-gnss/crinex/pkg/hatanaka"
)

// Coord defines a XYZ coordinate.
type Coord struct {
	X, Y, Z float64
}

// CoordNEU defines a North-, East-, Up-coordinate or eccentricity.
type CoordNEU struct {
	N, E, Up float64
}

// ObsCode is a three-character RINEX-3 observation code, e.g. "C1C", "L2W".
type ObsCode string

// A ObsHeader provides the RINEX Observation Header information. Only the
// header is modeled here: epoch and observation records are the concern of
// package hatanaka, which consumes a HeaderView projected from an ObsHeader.
type ObsHeader struct {
	RINEXVersion float32     // RINEX Format version
	RINEXType    string      // RINEX File type. O for Obs
	SatSystem    gnss.System // Satellite System. System is "Mixed" if more than one.

	Pgm   string // name of program creating this file
	RunBy string // name of agency creating this file
	Date  string // date and time of file creation

	Comments []string // * comment lines

	MarkerName, MarkerNumber, MarkerType string // antennas' marker name, *number and type

	Observer, Agency string

	ReceiverNumber, ReceiverType, ReceiverVersion string
	AntennaNumber, AntennaType                    string

	Position     Coord    // Geocentric approximate marker position [m]
	AntennaDelta CoordNEU // North,East,Up deltas in [m]

	ObsTypes map[gnss.System][]ObsCode // List of all observation types per GNSS.

	// GloSlots maps a GLONASS SV to its frequency slot number, parsed from
	// the "GLONASS SLOT / FRQ #" header record.
	GloSlots map[hatanaka.SV]int

	SignalStrengthUnit string
	Interval           float64 // Observation interval in seconds
	TimeOfFirstObs     time.Time
	TimeOfLastObs      time.Time
	LeapSeconds        int // The current number of leap seconds
	NSatellites        int // Number of satellites, for which observations are stored in the file

	labels []string // all Header Labels found
}

// SatSystems returns the constellations this header declares observation
// types for.
func (hdr *ObsHeader) SatSystems() []gnss.System {
	syss := make([]gnss.System, 0, len(hdr.ObsTypes))
	for sys := range hdr.ObsTypes {
		syss = append(syss, sys)
	}
	return syss
}

// HeaderView projects the parsed header into the narrow slice package
// hatanaka's codec actually needs.
func (hdr *ObsHeader) HeaderView() *hatanaka.HeaderView {
	obs := make(map[gnss.System][]string, len(hdr.ObsTypes))
	for sys, codes := range hdr.ObsTypes {
		list := make([]string, len(codes))
		for i, c := range codes {
			list[i] = string(c)
		}
		obs[sys] = list
	}
	major := int(hdr.RINEXVersion)
	_, shared := obs[gnss.SysMIXED]
	return &hatanaka.HeaderView{
		Major:         major,
		Observables:   obs,
		Mixed:         shared && len(obs) == 1,
		DefaultSystem: hdr.SatSystem,
	}
}

// ObsDecoder reads and decodes the header of a RINEX Obs input stream. It
// stops at "END OF HEADER"; decoding the epoch/observation body is package
// hatanaka's job, fed by a Decompressor constructed from Header.HeaderView().
type ObsDecoder struct {
	// Header is valid after NewObsDecoder. The header must exist, otherwise
	// ErrNoHeader is returned.
	Header ObsHeader
	sc     *bufio.Scanner
	err    error
}

// NewObsDecoder creates a new decoder for RINEX Observation data, reading
// and parsing the header implicitly. The header must exist.
//
// It is the caller's responsibility to call Close on the underlying reader
// when done.
func NewObsDecoder(r io.Reader) (*ObsDecoder, error) {
	dec := &ObsDecoder{sc: bufio.NewScanner(r)}
	dec.Header, dec.err = dec.readHeader()
	return dec, dec.err
}

// Err returns the first non-EOF error that was encountered by the decoder.
func (dec *ObsDecoder) Err() error {
	if dec.err == io.EOF {
		return nil
	}
	return dec.err
}

// Scanner exposes the underlying line scanner positioned right after "END OF
// HEADER", for a caller driving a hatanaka.Decompressor line by line.
func (dec *ObsDecoder) Scanner() *bufio.Scanner {
	return dec.sc
}

func (dec *ObsDecoder) readHeader() (hdr ObsHeader, err error) {
	hdr.ObsTypes = map[gnss.System][]ObsCode{}
	hdr.GloSlots = map[hatanaka.SV]int{}
	maxLines := 800
	rememberSys := ""
	sawVersion := false

read:
	for dec.sc.Scan() {
		line := dec.sc.Text()
		if len(hdr.labels) > maxLines {
			return hdr, fmt.Errorf("reading header failed: line %d reached without finding end of header", maxLines)
		}
		if len(line) < 60 {
			continue
		}

		val := line[:60]
		key := strings.TrimSpace(line[60:])
		hdr.labels = append(hdr.labels, key)

		switch key {
		case "RINEX VERSION / TYPE":
			if f64, perr := strconv.ParseFloat(strings.TrimSpace(val[:20]), 32); perr == nil {
				hdr.RINEXVersion = float32(f64)
			} else {
				return hdr, fmt.Errorf("parsing RINEX VERSION: %v", perr)
			}
			hdr.RINEXType = strings.TrimSpace(val[20:21])
			if sys, ok := gnss.SystemByAbbr(strings.TrimSpace(val[40:41])); ok {
				hdr.SatSystem = sys
			} else {
				return hdr, fmt.Errorf("invalid satellite system in line: %q", line)
			}
			sawVersion = true
		case "PGM / RUN BY / DATE":
			hdr.Pgm = strings.TrimSpace(val[:20])
			hdr.RunBy = strings.TrimSpace(val[20:40])
			hdr.Date = strings.TrimSpace(val[40:])
		case "COMMENT":
			hdr.Comments = append(hdr.Comments, strings.TrimSpace(val))
		case "MARKER NAME":
			hdr.MarkerName = strings.TrimSpace(val)
		case "MARKER NUMBER":
			hdr.MarkerNumber = strings.TrimSpace(val[:20])
		case "MARKER TYPE":
			hdr.MarkerType = strings.TrimSpace(val[20:40])
		case "OBSERVER / AGENCY":
			hdr.Observer = strings.TrimSpace(val[:20])
			hdr.Agency = strings.TrimSpace(val[20:])
		case "REC # / TYPE / VERS":
			hdr.ReceiverNumber = strings.TrimSpace(val[:20])
			hdr.ReceiverType = strings.TrimSpace(val[20:40])
			hdr.ReceiverVersion = strings.TrimSpace(val[40:])
		case "ANT # / TYPE":
			hdr.AntennaNumber = strings.TrimSpace(val[:20])
			hdr.AntennaType = strings.TrimSpace(val[20:40])
		case "APPROX POSITION XYZ":
			pos := strings.Fields(val)
			if len(pos) != 3 {
				return hdr, fmt.Errorf("parsing approx. position from line: %s", line)
			}
			hdr.Position.X, _ = parseFloat(pos[0])
			hdr.Position.Y, _ = parseFloat(pos[1])
			hdr.Position.Z, _ = parseFloat(pos[2])
		case "ANTENNA: DELTA H/E/N":
			ecc := strings.Fields(val)
			if len(ecc) != 3 {
				return hdr, fmt.Errorf("parsing antenna deltas from line: %s", line)
			}
			hdr.AntennaDelta.Up, _ = parseFloat(ecc[0])
			hdr.AntennaDelta.E, _ = parseFloat(ecc[1])
			hdr.AntennaDelta.N, _ = parseFloat(ecc[2])
		case "SYS / # / OBS TYPES":
			sysStr := val[:1]
			if sysStr == " " { // continuation line
				sysStr = rememberSys
			} else {
				rememberSys = sysStr
			}
			sys, ok := gnss.SystemByAbbr(sysStr)
			if !ok {
				return hdr, fmt.Errorf("invalid satellite system: %q: line %q", val[:1], line)
			}
			hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], toObsCodes(strings.Fields(val[7:]))...)
		case "# / TYPES OF OBSERV": // RINEX-2
			sys := hdr.SatSystem
			hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], toObsCodes(strings.Fields(val[7:]))...)
		case "GLONASS SLOT / FRQ #":
			if err := parseGloSlots(val, hdr.GloSlots); err != nil {
				return hdr, err
			}
		case "SIGNAL STRENGTH UNIT":
			hdr.SignalStrengthUnit = strings.TrimSpace(val[:20])
		case "INTERVAL":
			if f64, perr := strconv.ParseFloat(strings.TrimSpace(val), 64); perr == nil {
				hdr.Interval = f64
			}
		case "TIME OF FIRST OBS":
			t, perr := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43]))
			if perr != nil {
				return hdr, fmt.Errorf("parsing %q: %v", key, perr)
			}
			hdr.TimeOfFirstObs = t
		case "TIME OF LAST OBS":
			t, perr := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43]))
			if perr != nil {
				return hdr, fmt.Errorf("parsing %q: %v", key, perr)
			}
			hdr.TimeOfLastObs = t
		case "SYS / PHASE SHIFT": // optional, strongly deprecated; ignored.
		case "LEAP SECONDS":
			i, perr := strconv.Atoi(strings.TrimSpace(val[:6]))
			if perr != nil {
				return hdr, fmt.Errorf("parsing %q: %v", key, perr)
			}
			hdr.LeapSeconds = i
		case "# OF SATELLITES":
			i, perr := strconv.Atoi(strings.TrimSpace(val[:6]))
			if perr != nil {
				return hdr, fmt.Errorf("parsing %q: %v", key, perr)
			}
			hdr.NSatellites = i
		case "PRN / # OF OBS": // optional, not needed by the codec.
		case "END OF HEADER":
			break read
		}
	}

	if err = dec.sc.Err(); err != nil {
		return hdr, err
	}
	if !sawVersion {
		return hdr, ErrNoHeader
	}
	return hdr, nil
}

func toObsCodes(fields []string) []ObsCode {
	codes := make([]ObsCode, len(fields))
	for i, f := range fields {
		codes[i] = ObsCode(f)
	}
	return codes
}

// parseGloSlots parses the fixed-width "<sys><prn> <slot>" triples of a
// "GLONASS SLOT / FRQ #" header value into dst.
func parseGloSlots(val string, dst map[hatanaka.SV]int) error {
	fields := strings.Fields(val)
	start := 0
	if len(fields) > 0 {
		if _, err := strconv.Atoi(fields[0]); err == nil {
			start = 1 // leading slot-count field, ignored
		}
	}
	for i := start; i+1 < len(fields); i += 2 {
		sv, err := hatanaka.ParseSV(fields[i], gnss.SysGLO)
		if err != nil {
			continue
		}
		slot, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return fmt.Errorf("parsing GLONASS slot for %s: %v", fields[i], err)
		}
		dst[sv] = slot
	}
	return nil
}
