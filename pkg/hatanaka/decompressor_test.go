package hatanaka

import (
	"strings"
	"testing"

	"github.com/bkg-gnss/crinex/pkg/gnss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v3Header(obs ...string) *HeaderView {
	return &HeaderView{
		Major:         3,
		Observables:   map[gnss.System][]string{gnss.SysGPS: obs},
		DefaultSystem: gnss.SysGPS,
	}
}

func v1Header(obs ...string) *HeaderView {
	return &HeaderView{
		Major:         2,
		Observables:   map[gnss.System][]string{gnss.SysGPS: obs},
		DefaultSystem: gnss.SysGPS,
	}
}

// TestDecompressor_SingleEpochSingleSV mirrors scenario S1: a v3 epoch with
// one SV and one observable, observation value given as a full reset.
func TestDecompressor_SingleEpochSingleSV(t *testing.T) {
	hv := v3Header("C1C")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)

	buf := make([]byte, 256)

	n, err := d.Decompress("> 2022 03 04 00 00  0.0000000  0 1      G01", buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = d.Decompress("", buf)
	require.NoError(t, err)
	assert.Equal(t, "> 2022 03 04 00 00  0.0000000  0  1", string(buf[:n]))

	n, err = d.Decompress("3&123456789", buf)
	require.NoError(t, err)
	got := string(buf[:n])
	assert.Equal(t, "G01"+formatObsField(123456789), got)
}

// TestDecompressor_KernelContinuation mirrors S2: after seeding with S1, a
// fully compressed zero delta reproduces the same value.
func TestDecompressor_KernelContinuation(t *testing.T) {
	hv := v3Header("C1C")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, 256)

	_, err = d.Decompress("> 2022 03 04 00 00  0.0000000  0 1      G01", buf)
	require.NoError(t, err)
	_, err = d.Decompress("", buf)
	require.NoError(t, err)
	_, err = d.Decompress("3&123456789", buf)
	require.NoError(t, err)

	_, err = d.Decompress("> 2022 03 04 00 01  0.0000000  0 1      G01", buf)
	require.NoError(t, err)
	_, err = d.Decompress("", buf)
	require.NoError(t, err)
	n, err := d.Decompress("0", buf)
	require.NoError(t, err)
	assert.Equal(t, "G01"+formatObsField(123456789), string(buf[:n]))
}

// TestDecompressor_V1Wrap13SVs mirrors S3: a v1/v2 epoch declaring 13 SVs
// must produce a head line plus one continuation line.
func TestDecompressor_V1Wrap13SVs(t *testing.T) {
	hv := v1Header("L1")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, d.RequiredSize())

	var rest string
	for i := 1; i <= 13; i++ {
		rest += SV{Sys: gnss.SysGPS, PRN: i}.String()
	}
	epoch := "&22  3  4  0  0  0.0000000  0 13" + rest

	_, err = d.Decompress(epoch, buf)
	require.NoError(t, err)
	assert.Equal(t, decStateClock, d.state)
	assert.Equal(t, 13, d.desc.NumSat)

	buf = make([]byte, d.RequiredSize())
	n, err := d.Decompress("", buf)
	require.NoError(t, err)
	out := string(buf[:n])

	head := " 22  3  4  0  0  0.0000000  0 13"
	for i := 1; i <= 12; i++ {
		head += SV{Sys: gnss.SysGPS, PRN: i}.String()
	}
	want := head + "\n" + strings.Repeat(" ", 32) + "G13"
	assert.Equal(t, want, out)
}

// TestDecompressor_TruncatedObservationLine mirrors S4: trailing missing
// observations with an unchanged flag stream still paint the preserved
// flags onto the emitted fields. A prior epoch seeds the per-SV flag
// reference with real flag bytes; the truncated epoch then carries no
// flag-stream delta at all, relying entirely on the preserved reference.
func TestDecompressor_TruncatedObservationLine(t *testing.T) {
	hv := v1Header("L1", "L2", "C1", "C2")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, d.RequiredSize())

	epoch := "&22  3  4  0  0  0.0000000  0  1G01"
	_, err = d.Decompress(epoch, buf)
	require.NoError(t, err)

	buf = make([]byte, d.RequiredSize())
	_, err = d.Decompress("", buf)
	require.NoError(t, err)
	assert.Equal(t, decStateObservation, d.state)

	buf = make([]byte, d.RequiredSize())
	_, err = d.Decompress("3&1000 3&2000 3&3000 3&4000 xyxyxyxy", buf)
	require.NoError(t, err)
	assert.Equal(t, decStateEpoch, d.state)

	_, err = d.Decompress("&22  3  4  0  1  0.0000000  0  1G01", buf)
	require.NoError(t, err)
	buf = make([]byte, d.RequiredSize())
	_, err = d.Decompress("", buf)
	require.NoError(t, err)

	buf = make([]byte, d.RequiredSize())
	n, err := d.Decompress("0 0", buf)
	require.NoError(t, err)
	out := string(buf[:n])

	assert.Equal(t, byte('x'), out[14])
	assert.Equal(t, byte('y'), out[15])
	assert.Equal(t, byte('x'), out[30])
	assert.Equal(t, byte('y'), out[31])
	assert.Equal(t, blanks(32), out[32:64])
}

// TestDecompressor_TextResetMidStream covers scenario S5: a full epoch
// reset followed by a text-delta descriptor (no leading '>'/'&') whose
// columns are recovered against the previous reference, preserving the
// satellite list and count exactly where the delta carries spaces.
func TestDecompressor_TextResetMidStream(t *testing.T) {
	hv := v3Header("C1C")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, 256)

	ref := " 2023 01 01 00 00  0.0000000  0 02G01G02"
	_, err = d.Decompress(">"+ref, buf)
	require.NoError(t, err)
	_, err = d.Decompress("", buf)
	require.NoError(t, err)
	assert.Equal(t, 2, d.desc.NumSat)

	require.NoError(t, skipObservations(d, buf, 2))

	target := " 2023 01 01 00 01  0.0000000  0 02G01G02"
	standalone := NewTextKernel()
	standalone.Seed([]byte(ref))
	delta, err := standalone.Compress([]byte(target))
	require.NoError(t, err)

	_, err = d.Decompress(string(delta), buf)
	require.NoError(t, err)
	assert.Equal(t, decStateClock, d.state)
	assert.Equal(t, 1, d.desc.Minute)
	assert.Equal(t, 2, d.desc.NumSat)
	require.Len(t, d.desc.SVs, 2)
}

// TestDecompressor_ResyncAfterMalformedEpoch mirrors S6: after a malformed
// epoch descriptor error, a fresh reset-marked line is accepted normally.
func TestDecompressor_ResyncAfterMalformedEpoch(t *testing.T) {
	hv := v3Header("C1C")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, 256)

	_, err = d.Decompress(">bad", buf)
	require.Error(t, err)
	assert.Equal(t, decStateEpoch, d.state)

	_, err = d.Decompress("> 2022 03 04 00 00  0.0000000  0 1      G01", buf)
	require.NoError(t, err)
	assert.Equal(t, decStateClock, d.state)
}

func TestDecompressor_BufferOverflowDoesNotAdvanceState(t *testing.T) {
	hv := v3Header("C1C")
	d, err := NewDecompressor(hv, DefaultMaxOrder)
	require.NoError(t, err)
	buf := make([]byte, 256)

	_, err = d.Decompress("> 2022 03 04 00 00  0.0000000  0 1      G01", buf)
	require.NoError(t, err)

	tiny := make([]byte, 1)
	_, err = d.Decompress("", tiny)
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, decStateClock, d.state)
}

func skipObservations(d *Decompressor, buf []byte, n int) error {
	for i := 0; i < n; i++ {
		if _, err := d.Decompress("0", buf); err != nil {
			return err
		}
	}
	return nil
}
