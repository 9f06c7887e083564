package rinex

import (
	"strings"
	"testing"

	"github.com/bkg-gnss/crinex/pkg/gnss"
	"github.com/bkg-gnss/crinex/pkg/hatanaka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v3HeaderSample = `     3.03           OBSERVATION DATA    M (MIXED)           RINEX VERSION / TYPE
G = GPS  R = GLONASS  E = GALILEO  S = SBAS PAYLOAD         COMMENT
teqc  2019Feb25     krummen 20220304 00:10:02UTC            PGM / RUN BY / DATE
BRUX                                                        MARKER NAME
13101M010                                                   MARKER NUMBER
OBSERVER1           AGENCY                                  OBSERVER / AGENCY
1234567890          TRIMBLE NETR9       5.03                REC # / TYPE / VERS
1234567890          TRM59800.00     NONE                    ANT # / TYPE
 4027881.5085   306998.7794  4919498.1875                   APPROX POSITION XYZ
        0.0000        0.0000        0.0000                  ANTENNA: DELTA H/E/N
G    4 C1C L1C D1C S1C                                      SYS / # / OBS TYPES
R    4 C1C L1C D1C S1C                                      SYS / # / OBS TYPES
    2 R01  18 R02  -4                                       GLONASS SLOT / FRQ #
DBHZ                                                        SIGNAL STRENGTH UNIT
    30.0000                                                 INTERVAL
  2022     3     4     0     0    0.0000000     GPS         TIME OF FIRST OBS
    18                                                      LEAP SECONDS
                                                            END OF HEADER
`

const v2HeaderSample = `     2.11           OBSERVATION DATA    G (GPS)             RINEX VERSION / TYPE
teqc  2019Feb25     krummen 20220304 00:10:02UTC            PGM / RUN BY / DATE
BRUX                                                        MARKER NAME
     4    C1    L1    D1    S1                              # / TYPES OF OBSERV
    30.0000                                                 INTERVAL
                                                            END OF HEADER
`

func TestNewObsDecoder_V3(t *testing.T) {
	dec, err := NewObsDecoder(strings.NewReader(v3HeaderSample))
	require.NoError(t, err)
	require.NoError(t, dec.Err())

	hdr := dec.Header
	assert.Equal(t, float32(3.03), hdr.RINEXVersion)
	assert.Equal(t, "O", hdr.RINEXType)
	assert.Equal(t, gnss.SysMIXED, hdr.SatSystem)
	assert.Equal(t, "BRUX", hdr.MarkerName)
	assert.Equal(t, "13101M010", hdr.MarkerNumber)
	assert.Equal(t, 30.0, hdr.Interval)
	assert.Equal(t, 18, hdr.LeapSeconds)
	assert.ElementsMatch(t, []ObsCode{"C1C", "L1C", "D1C", "S1C"}, hdr.ObsTypes[gnss.SysGPS])
	assert.ElementsMatch(t, []ObsCode{"C1C", "L1C", "D1C", "S1C"}, hdr.ObsTypes[gnss.SysGLO])
	assert.Equal(t, 18, hdr.GloSlots[mustSV(t, "R01")])
	assert.Equal(t, -4, hdr.GloSlots[mustSV(t, "R02")])
	assert.Equal(t, 2, len(hdr.GloSlots))
	assert.ElementsMatch(t, []gnss.System{gnss.SysGPS, gnss.SysGLO}, hdr.SatSystems())
}

func TestNewObsDecoder_V3_HeaderView(t *testing.T) {
	dec, err := NewObsDecoder(strings.NewReader(v3HeaderSample))
	require.NoError(t, err)

	hv := dec.Header.HeaderView()
	assert.Equal(t, 3, hv.Major)
	assert.False(t, hv.Mixed)
	assert.Equal(t, gnss.SysMIXED, hv.DefaultSystem)
	assert.ElementsMatch(t, []string{"C1C", "L1C", "D1C", "S1C"}, hv.Observables[gnss.SysGPS])
}

func TestNewObsDecoder_V2(t *testing.T) {
	dec, err := NewObsDecoder(strings.NewReader(v2HeaderSample))
	require.NoError(t, err)

	hdr := dec.Header
	assert.Equal(t, float32(2.11), hdr.RINEXVersion)
	assert.Equal(t, gnss.SysGPS, hdr.SatSystem)
	assert.ElementsMatch(t, []ObsCode{"C1", "L1", "D1", "S1"}, hdr.ObsTypes[gnss.SysGPS])

	hv := dec.Header.HeaderView()
	assert.Equal(t, 2, hv.Major)
	assert.False(t, hv.Mixed)
}

func TestNewObsDecoder_NoHeader(t *testing.T) {
	_, err := NewObsDecoder(strings.NewReader("not a rinex file at all\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestNewObsDecoder_ScannerPositionedAfterHeader(t *testing.T) {
	body := v3HeaderSample + "> 2022 03 04 00 00  0.0000000  0  1      G01\n"
	dec, err := NewObsDecoder(strings.NewReader(body))
	require.NoError(t, err)

	require.True(t, dec.Scanner().Scan())
	assert.Equal(t, "> 2022 03 04 00 00  0.0000000  0  1      G01", dec.Scanner().Text())
}

func mustSV(t *testing.T, s string) hatanaka.SV {
	t.Helper()
	sv, err := hatanaka.ParseSV(s, gnss.SysGPS)
	require.NoError(t, err)
	return sv
}
