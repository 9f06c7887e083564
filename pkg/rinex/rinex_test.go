package rinex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRnx2FileNamePattern(t *testing.T) {
	res := Rnx2FileNamePattern.FindStringSubmatch("brux2820.22o")
	require.NotNil(t, res)
	assert.Equal(t, "brux", res[2])
	assert.Equal(t, "282", res[3])
	assert.Equal(t, "0", res[4])
	assert.Equal(t, "22", res[6])
	assert.Equal(t, "o", res[7])
}

func TestRnx3FileNamePattern(t *testing.T) {
	res := Rnx3FileNamePattern.FindStringSubmatch("BRUX00BEL_R_20183101900_01H_30S_MO.rnx.gz")
	require.NotNil(t, res)
	assert.Equal(t, "BRUX", res[3])
	assert.Equal(t, "BEL", res[6])
	assert.Equal(t, "R", res[7])
	assert.Equal(t, "01H", res[13])
	assert.Equal(t, "30S", res[14])
	assert.Equal(t, "MO", res[15])
	assert.Equal(t, "rnx", res[16])
	assert.Equal(t, "gz", res[17])
}

func TestRnx2Filename(t *testing.T) {
	f := &RnxFil{
		FourCharID: "BRUX",
		StartTime:  time.Date(2022, 10, 9, 0, 0, 0, 0, time.UTC),
		DataType:   "GO",
		Format:     "rnx",
		FilePeriod: "01D",
	}
	fn, err := f.Rnx2Filename()
	require.NoError(t, err)
	assert.Equal(t, "brux2820.22o", fn)
}

func TestRnx2FilenameHatanaka(t *testing.T) {
	f := &RnxFil{
		FourCharID: "BRUX",
		StartTime:  time.Date(2022, 10, 9, 0, 0, 0, 0, time.UTC),
		DataType:   "GO",
		Format:     "crx",
		FilePeriod: "01D",
	}
	fn, err := f.Rnx2Filename()
	require.NoError(t, err)
	assert.Equal(t, "brux2820.22d", fn)
}

func TestRnx2Filename_MissingID(t *testing.T) {
	f := &RnxFil{StartTime: time.Now(), DataType: "GO", FilePeriod: "01D"}
	_, err := f.Rnx2Filename()
	assert.Error(t, err)
}

func TestRnx3Filename_MissingCountryCode(t *testing.T) {
	f := &RnxFil{
		FourCharID: "BRUX",
		StartTime:  time.Date(2022, 11, 6, 19, 0, 0, 0, time.UTC),
		DataType:   "GO",
		Format:     "rnx",
		FilePeriod: "01H",
		DataFreq:   "30S",
	}
	_, err := f.Rnx3Filename()
	assert.Error(t, err)
}

func TestRnx3Filename(t *testing.T) {
	f := &RnxFil{
		FourCharID:  "BRUX",
		CountryCode: "BEL",
		StartTime:   time.Date(2018, 11, 6, 19, 0, 0, 0, time.UTC),
		DataType:    "GO",
		Format:      "rnx",
		FilePeriod:  "01H",
		DataFreq:    "30S",
		DataSource:  "R",
	}
	fn, err := f.Rnx3Filename()
	require.NoError(t, err)
	assert.Equal(t, "BRUX00BEL_R_20183101900_01H_30S_GO.rnx", fn)
}

func TestParseFilename_Rnx2(t *testing.T) {
	f, err := NewFile("brux2820.22o")
	require.NoError(t, err)
	assert.Equal(t, "BRUX", f.FourCharID)
	assert.Equal(t, "01D", f.FilePeriod)
	assert.Equal(t, "rnx", f.Format)
	assert.Equal(t, "MO", f.DataType)
	assert.True(t, f.IsObsType())
}

func TestParseFilename_Rnx2Hatanaka(t *testing.T) {
	f, err := NewFile("brux2820.22d")
	require.NoError(t, err)
	assert.Equal(t, "crx", f.Format)
	assert.True(t, f.IsHatanakaCompressed())
}

func TestParseFilename_Rnx3(t *testing.T) {
	f, err := NewFile("BRUX00BEL_R_20183101900_01H_30S_MO.crx.gz")
	require.NoError(t, err)
	assert.Equal(t, "BRUX", f.FourCharID)
	assert.Equal(t, "BEL", f.CountryCode)
	assert.Equal(t, "R", f.DataSource)
	assert.Equal(t, "01H", f.FilePeriod)
	assert.Equal(t, "30S", f.DataFreq)
	assert.Equal(t, "MO", f.DataType)
	assert.Equal(t, "crx", f.Format)
	assert.Equal(t, "gz", f.Compression)
	assert.True(t, f.IsHatanakaCompressed())
}

func TestParseDoy(t *testing.T) {
	got := ParseDoy(2022, 282)
	want := time.Date(2022, 10, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestParseDoy_TwoDigitYear(t *testing.T) {
	got := ParseDoy(22, 1)
	assert.Equal(t, 2022, got.Year())
}

func Test_parseHeaderDate(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"noZone", "20220304 120000"},
		{"withZone", "20220304 120000 UTC"},
		{"v2", "04-Mar-22 12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti, err := parseHeaderDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, 2022, ti.Year())
		})
	}
}

func Test_parseHeaderDate_Invalid(t *testing.T) {
	_, err := parseHeaderDate("not-a-date")
	assert.Error(t, err)
}

func TestRnxFil_SetStationName(t *testing.T) {
	f := &RnxFil{}
	require.NoError(t, f.SetStationName("brux"))
	assert.Equal(t, "BRUX", f.FourCharID)

	require.NoError(t, f.SetStationName("brux00bel"))
	assert.Equal(t, "BRUX", f.FourCharID)
	assert.Equal(t, "BEL", f.CountryCode)

	assert.Error(t, f.SetStationName("bad"))
}

func TestGetHourAsChar(t *testing.T) {
	assert.Equal(t, "a", getHourAsChar(0))
	assert.Equal(t, "x", getHourAsChar(23))
}

func TestGetHourAsDigit(t *testing.T) {
	hr, err := getHourAsDigit('a')
	require.NoError(t, err)
	assert.Equal(t, 0, hr)

	_, err = getHourAsDigit('z')
	assert.Error(t, err)
}
